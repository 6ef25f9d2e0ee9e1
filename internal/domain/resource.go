package domain

import "time"

// ResourceID is the stable identifier the control plane knows a container by.
// The name shown to users lives in ResourcePolicy.DisplayName and may change
// independently.
type ResourceID string

func (id ResourceID) String() string { return string(id) }

// Attributes is the provider-shaped snapshot of a container.
// It is what the raw cache tier stores.
type Attributes struct {
	ID        ResourceID `json:"id"`
	Name      string     `json:"name"`
	Image     string     `json:"image,omitempty"`
	Running   bool       `json:"running"`
	Status    string     `json:"status,omitempty"` // daemon state string, e.g. "running", "exited"
	StartedAt time.Time  `json:"started_at"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Stats holds resource usage already computed by the provider adapter.
type Stats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryLimitMB float64 `json:"memory_limit_mb,omitempty"`
}

// ResourcePolicy describes how a container is presented and whether it is
// polled at all.
type ResourcePolicy struct {
	// ID matches the control plane identifier.
	ID ResourceID `json:"id"`

	// DisplayName is what the front end shows. Defaults to ID.
	DisplayName string `json:"display_name"`

	// AllowDetailedStatus permits CPU/RAM/uptime to be shown.
	AllowDetailedStatus bool `json:"allow_detailed_status"`

	// Active resources are polled. Deactivated ones are skipped until the
	// policy file is reloaded with them present again.
	Active bool `json:"active"`

	// Order controls listing order on the dashboard.
	Order int `json:"order"`

	// UpdatedAt is set on any mutation (including deactivation).
	UpdatedAt time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the id.
func (p *ResourcePolicy) Name() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return string(p.ID)
}

// Subscription binds a publishing channel to the resources it displays.
type Subscription struct {
	ChannelID string       `json:"channel_id"`
	Resources []ResourceID `json:"resources"`
}
