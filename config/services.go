package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeGateway runs the edge relay.
	ServiceModeGateway ServiceMode = "gateway"
	// ServiceModeTodo runs the todo front door (login, todo pages, admin UI).
	ServiceModeTodo ServiceMode = "todo"
	// ServiceModeUsers runs the user directory service.
	ServiceModeUsers ServiceMode = "users"
	// ServiceModeAuth runs the token service.
	ServiceModeAuth ServiceMode = "auth"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeGateway,
		ServiceModeTodo,
		ServiceModeUsers,
		ServiceModeAuth,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeGateway, ServiceModeTodo, ServiceModeUsers, ServiceModeAuth:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: gateway, todo, users, auth)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}
