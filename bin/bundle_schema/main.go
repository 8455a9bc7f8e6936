package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"colorfulez-server/assets"
)

// Prints the JSON schema of stripes bundle files, or writes it to the given path.
func main() {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(new(assets.Bundle))
	schema.Title = "Stripes bundle"
	schema.Description = "Prefabs instantiated into entrance zone rooms"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(os.Args[1], data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote bundle schema to %s\n", os.Args[1])
}
