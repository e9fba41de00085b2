package governance

import (
	"encoding/json"
	"maps"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/repository"
)

const (
	totalPowerCounter = "total-voting-power"
	genesisMarker     = "voting-power-genesis"
)

// OpGenesis seeds the voting power table.
const OpGenesis = "governance.genesis"

func powerOf(r ledger.Reader, addr models.Address) (uint64, error) {
	var power uint64
	if _, err := r.Get(repository.PowerKey(addr), &power); err != nil {
		return 0, err
	}
	return power, nil
}

func totalPower(r ledger.Reader) (uint64, error) {
	var total uint64
	if _, err := r.Get(repository.CounterKey(totalPowerCounter), &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Genesis writes the initial voting power allocation. It can be applied once,
// and only by the DAO's own identity.
func (d *DAO) Genesis(allocations map[models.Address]uint64) (*models.Receipt, error) {
	return d.ledger.Submit(d.Address(), OpGenesis, func(tx *ledger.Tx) error {
		var applied bool
		if _, err := tx.Get(repository.CounterKey(genesisMarker), &applied); err != nil {
			return err
		}
		if applied {
			return apperrors.ErrGenesisApplied
		}
		var total uint64
		for _, addr := range slices.Sorted(maps.Keys(allocations)) {
			weight := allocations[addr]
			if !addr.Valid() {
				return apperrors.ErrInvalidIdentity
			}
			sum, carry := bits.Add64(total, weight, 0)
			if carry != 0 {
				return apperrors.ErrVotingPowerOverflow
			}
			total = sum
			if err := tx.Put(repository.PowerKey(addr), weight); err != nil {
				return err
			}
			tx.Emit(models.EventVotingPowerSet, "voter", addr.String(), "weight", strconv.FormatUint(weight, 10))
		}
		if err := tx.Put(repository.CounterKey(totalPowerCounter), total); err != nil {
			return err
		}
		return tx.Put(repository.CounterKey(genesisMarker), true)
	})
}

// GenesisApplied reports whether the voting power table has been seeded.
func (d *DAO) GenesisApplied() (bool, error) {
	var applied bool
	err := d.ledger.View(func(r ledger.Reader) error {
		_, err := r.Get(repository.CounterKey(genesisMarker), &applied)
		return err
	})
	return applied, err
}

// VotingPower returns addr's current voting power.
func (d *DAO) VotingPower(addr models.Address) (uint64, error) {
	var power uint64
	err := d.ledger.View(func(r ledger.Reader) error {
		var err error
		power, err = powerOf(r, addr)
		return err
	})
	return power, err
}

// TotalVotingPower returns the sum of all allocated voting power.
func (d *DAO) TotalVotingPower() (uint64, error) {
	var total uint64
	err := d.ledger.View(func(r ledger.Reader) error {
		var err error
		total, err = totalPower(r)
		return err
	})
	return total, err
}

// Voters lists every address holding voting power.
func (d *DAO) Voters() (map[models.Address]uint64, error) {
	out := make(map[models.Address]uint64)
	err := d.ledger.View(func(r ledger.Reader) error {
		return r.Scan(repository.PowerPrefix, func(key string, data []byte) error {
			var weight uint64
			if err := json.Unmarshal(data, &weight); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
			}
			out[models.Address(strings.TrimPrefix(key, repository.PowerPrefix))] = weight
			return nil
		})
	})
	return out, err
}
