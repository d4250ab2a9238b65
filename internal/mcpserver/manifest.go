package mcpserver

import (
	"encoding/json"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/deadwood"
	repositoryURL  = "https://github.com/panbanda/deadwood"
	imageName      = "ghcr.io/panbanda/deadwood"
	publisherMeta  = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the registry server.json document.
type Manifest struct {
	Schema      string                `json:"$schema"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Version     string                `json:"version"`
	Repository  map[string]string     `json:"repository,omitempty"`
	Packages    []Package             `json:"packages,omitempty"`
	Meta        map[string]Capability `json:"_meta,omitempty"`
}

// Package is a runnable distribution of the server.
type Package struct {
	RegistryType     string              `json:"registryType"`
	Identifier       string              `json:"identifier"`
	PackageArguments []map[string]string `json:"packageArguments,omitempty"`
	Transport        struct {
		Type string `json:"type"`
	} `json:"transport"`
}

// Capability advertises what the server offers, taken from the tool
// catalog and the embedded prompts.
type Capability struct {
	Tools   []NamedEntry `json:"tools"`
	Prompts []NamedEntry `json:"prompts,omitempty"`
}

// NamedEntry is a tool or prompt with its one-line summary.
type NamedEntry struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// GenerateManifest renders the server.json for version, "0.0.0" when empty.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	var capability Capability
	for _, t := range tools {
		capability.Tools = append(capability.Tools, NamedEntry{Name: t.name, Summary: t.summary})
	}
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		capability.Prompts = append(capability.Prompts, NamedEntry{Name: p.name, Summary: p.description})
	}

	pkg := Package{
		RegistryType:     "oci",
		Identifier:       imageName + ":" + version,
		PackageArguments: []map[string]string{{"type": "positional", "value": "mcp"}},
	}
	pkg.Transport.Type = "stdio"

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Description: "Reachability and dead code analysis for compiled JVM programs",
		Version:     version,
		Repository:  map[string]string{"url": repositoryURL, "source": "github"},
		Packages:    []Package{pkg},
		Meta:        map[string]Capability{publisherMeta: capability},
	}, "", "  ")
}
