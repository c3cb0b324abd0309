package stage

// Health is one stage's readiness as reported by its handler.
type Health struct {
	Stage  Name
	Ready  bool
	Detail string
}

// Healthy reports name as ready.
func Healthy(name Name) Health {
	return Health{Stage: name, Ready: true}
}

// Unhealthy reports name as not ready, with detail saying why.
func Unhealthy(name Name, detail string) Health {
	return Health{Stage: name, Detail: detail}
}
