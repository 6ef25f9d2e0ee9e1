package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// Map converts a parsed file into policies and subscriptions. Entries without
// an id are skipped, the first entry wins for duplicate ids, and channel
// references to unknown resources are dropped.
func Map(file File) ([]*domain.ResourcePolicy, []domain.Subscription, error) {
	now := time.Now()
	seen := make(map[domain.ResourceID]bool, len(file.Resources))
	policies := make([]*domain.ResourcePolicy, 0, len(file.Resources))

	for i, spec := range file.Resources {
		id := domain.ResourceID(strings.TrimSpace(spec.ID))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		p := &domain.ResourcePolicy{
			ID:                  id,
			DisplayName:         strings.TrimSpace(spec.DisplayName),
			AllowDetailedStatus: spec.AllowDetailedStatus,
			Active:              true,
			Order:               i,
			UpdatedAt:           now,
		}
		if spec.Active != nil {
			p.Active = *spec.Active
		}
		if spec.Order != nil {
			p.Order = *spec.Order
		}
		policies = append(policies, p)
	}

	if len(policies) == 0 {
		return nil, nil, fmt.Errorf("no valid resources found in policy file")
	}

	var subs []domain.Subscription
	for _, ch := range file.Channels {
		channelID := strings.TrimSpace(ch.ID)
		if channelID == "" {
			continue
		}
		sub := domain.Subscription{ChannelID: channelID}
		for _, raw := range ch.Resources {
			if id := domain.ResourceID(strings.TrimSpace(raw)); seen[id] {
				sub.Resources = append(sub.Resources, id)
			}
		}
		if len(sub.Resources) > 0 {
			subs = append(subs, sub)
		}
	}

	return policies, subs, nil
}

// LoadIndex reads the file behind l and replaces the index content with it.
func LoadIndex(l *Loader, idx *Index) error {
	file, err := l.Load()
	if err != nil {
		return err
	}
	policies, subs, err := Map(file)
	if err != nil {
		return err
	}
	idx.Replace(policies, subs)
	return nil
}
