package main

import (
	"strings"

	"github.com/marldb/marl"
	"github.com/marldb/marl/pkg/entities"
	"github.com/marldb/marl/pkg/store"
)

// containerStore resolves a CLI container argument to its store. The
// built-in names are matched case-insensitively; anything else is used
// verbatim as a raw container name.
func containerStore(client *marl.Client, arg string) *store.Store {
	switch strings.ToLower(arg) {
	case "studies":
		return client.Studies
	case "companies":
		return client.Companies
	case "interactions":
		return client.Interactions.Store
	default:
		return client.Store(arg)
	}
}

// knownContainers is the help-text listing of the built-in containers.
var knownContainers = strings.Join([]string{
	entities.ContainerStudies,
	entities.ContainerCompanies,
	entities.ContainerInteractions,
}, ", ")
