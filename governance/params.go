package governance

import (
	"fmt"
	"time"
)

// Params are the voting and timelock settings of the DAO.
type Params struct {
	VotingDelay       time.Duration // propose -> voting opens
	VotingPeriod      time.Duration // length of the voting window
	MinDelay          time.Duration // queue -> earliest execution
	GracePeriod       time.Duration // eta -> last execution
	ProposalThreshold uint64        // minimum voting power to propose
	QuorumPercent     uint64        // of total voting power at the proposal snapshot
}

// DefaultParams mirror common on-chain governor settings.
func DefaultParams() Params {
	return Params{
		VotingDelay:       24 * time.Hour,
		VotingPeriod:      7 * 24 * time.Hour,
		MinDelay:          2 * 24 * time.Hour,
		GracePeriod:       14 * 24 * time.Hour,
		ProposalThreshold: 1,
		QuorumPercent:     4,
	}
}

func (p Params) Validate() error {
	if p.VotingDelay < 0 || p.MinDelay < 0 {
		return fmt.Errorf("governance delays must not be negative")
	}
	if p.VotingPeriod < time.Second {
		return fmt.Errorf("voting period must be at least one second, got %s", p.VotingPeriod)
	}
	if p.GracePeriod < 0 {
		return fmt.Errorf("grace period must not be negative")
	}
	if p.QuorumPercent > 100 {
		return fmt.Errorf("quorum percent must be within 0..100, got %d", p.QuorumPercent)
	}
	return nil
}

// Quorum is the participating weight required out of total, rounded up so
// that meeting it always means reaching QuorumPercent of total.
func (p Params) Quorum(total uint64) uint64 {
	whole := total / 100 * p.QuorumPercent
	rest := total % 100 * p.QuorumPercent
	return whole + (rest+99)/100
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
