package stage

import (
	"fmt"
	"strings"
)

// Name identifies a lifecycle stage.
type Name string

const (
	Download Name = "download"
	Convert  Name = "convert"
	Upload   Name = "upload"
	Delete   Name = "delete"
)

// Pipeline is the strict order forward stages run in.
var Pipeline = []Name{Download, Convert, Upload}

// All lists every stage including deletion.
func All() []Name {
	return []Name{Download, Convert, Upload, Delete}
}

// Parse resolves a stage name.
func Parse(value string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range All() {
		if candidate == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", value)
}

// Gated reports whether the stage records a completion marker. Deletion
// always runs against the current metadata.
func (n Name) Gated() bool {
	return n != Delete && n != ""
}

func (n Name) String() string {
	return string(n)
}
