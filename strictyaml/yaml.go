// Package strictyaml provides a strict YAML unmarshaller based on `go-yaml/yaml`
package strictyaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Unmarshal decodes exactly one YAML document from b into yamlObj. Keys
// that do not correspond to a field of yamlObj, an empty input and any
// trailing document are all errors.
func Unmarshal(b []byte, yamlObj interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)

	err := decoder.Decode(yamlObj)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("YAML document is empty")
		}
		return err
	}

	var extra interface{}
	err = decoder.Decode(&extra)
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected content after the first YAML document: %v", err)
	}
	return nil
}
