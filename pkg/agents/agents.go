// Package agents assembles the three specialized conversational agents:
// discovery, verification and scheduling.
package agents

import (
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/team"
)

const (
	Discovery    = "discovery"
	Verification = "verification"
	Scheduling   = "scheduling"
)

// Deps are the remote collaborators the domain tools call into.
type Deps struct {
	Catalog      services.Catalog
	Verification services.Verification
}

// NewTeam builds the full agent registry for one tenant.
func NewTeam(tenantID string, deps Deps) *team.Team {
	return team.New(
		team.WithID(tenantID),
		team.WithAgents(
			newDiscoveryAgent(deps),
			newVerificationAgent(deps),
			newSchedulingAgent(deps),
		),
	)
}
