package policy

// File is the resource policy file. The same shape is read from YAML and TOML.
type File struct {
	Resources []ResourceSpec `yaml:"resources" toml:"resources"`
	Channels  []ChannelSpec  `yaml:"channels" toml:"channels"`
}

// ResourceSpec describes one container entry.
type ResourceSpec struct {
	ID                  string `yaml:"id" toml:"id"`
	DisplayName         string `yaml:"display_name,omitempty" toml:"display_name,omitempty"`
	AllowDetailedStatus bool   `yaml:"allow_detailed_status,omitempty" toml:"allow_detailed_status,omitempty"`
	// Active defaults to true when omitted.
	Active *bool `yaml:"active,omitempty" toml:"active,omitempty"`
	Order  *int  `yaml:"order,omitempty" toml:"order,omitempty"`
}

// ChannelSpec binds a publishing channel to resource ids.
type ChannelSpec struct {
	ID        string   `yaml:"id" toml:"id"`
	Resources []string `yaml:"resources" toml:"resources"`
}
