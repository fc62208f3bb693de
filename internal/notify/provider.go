// Package notify turns rule matches into outbound messages and delivers
// them over pluggable channels.
package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
)

// DefaultChannel is used when a user has not picked a channel.
const DefaultChannel = "telegram"

// Provider pushes one rendered message to one user over a messaging channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, user domain.User, message string) error
}

// Registry dispatches sends to the provider named in the user's settings.
// New channels are added by registering another Provider, not by branching
// on type.
type Registry struct {
	providers map[string]Provider
	log       logrus.FieldLogger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		log:       logger.WithField("component", "notify"),
	}
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
	r.log.WithField("provider", p.Name()).Info("Notification provider registered")
}

// Send delivers message to user over the user's configured channel, falling
// back to the default channel when none is set.
func (r *Registry) Send(ctx context.Context, user domain.User, message string) error {
	name := user.Settings.Notifications.Channel
	if name == "" {
		name = DefaultChannel
	}
	p, ok := r.providers[name]
	if !ok {
		return fmt.Errorf("no notification provider registered for channel %q", name)
	}
	return p.Send(ctx, user, message)
}
