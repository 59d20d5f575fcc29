package ledger

import (
	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// SetMinters replaces the minter set. Controllers only.
func (l *Ledger) SetMinters(caller types.Principal, minters []types.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.IsController(caller) {
		return genericErrorf("caller is not a controller")
	}
	l.collection.Minters = sortedPrincipals(minters)
	l.collection.UpdatedAt = l.nowFn() / SECOND
	return l.colStore.Save(l.collection)
}

// SetManagers replaces the manager set. Controllers only.
func (l *Ledger) SetManagers(caller types.Principal, managers []types.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.IsController(caller) {
		return genericErrorf("caller is not a controller")
	}
	l.collection.Managers = sortedPrincipals(managers)
	l.collection.UpdatedAt = l.nowFn() / SECOND
	return l.colStore.Save(l.collection)
}

// UpdateCollection edits the collection record and its settings.
// Managers only; a supply cap, once set, cannot be changed.
func (l *Ledger) UpdateCollection(caller types.Principal, arg UpdateCollectionArg) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.collection.IsManager(caller) {
		return genericErrorf("caller is not a manager")
	}
	if arg.SupplyCap != nil && l.collection.SupplyCap > 0 {
		return genericErrorf("supply cap can not be changed")
	}

	c := l.collection
	if arg.Name != nil {
		c.Name = *arg.Name
	}
	if arg.Description != nil {
		c.Description = *arg.Description
	}
	if arg.Logo != nil {
		c.Logo = *arg.Logo
	}
	if arg.AssetsOrigin != nil {
		c.AssetsOrigin = *arg.AssetsOrigin
	}
	if arg.SupplyCap != nil {
		c.SupplyCap = *arg.SupplyCap
	}
	if arg.MaxQueryBatchSize != nil {
		c.Settings.MaxQueryBatchSize = *arg.MaxQueryBatchSize
	}
	if arg.MaxUpdateBatchSize != nil {
		c.Settings.MaxUpdateBatchSize = *arg.MaxUpdateBatchSize
	}
	if arg.DefaultTakeValue != nil {
		c.Settings.DefaultTakeValue = *arg.DefaultTakeValue
	}
	if arg.MaxTakeValue != nil {
		c.Settings.MaxTakeValue = *arg.MaxTakeValue
	}
	if arg.MaxMemoSize != nil {
		c.Settings.MaxMemoSize = *arg.MaxMemoSize
	}
	if arg.AtomicBatchTransfers != nil {
		c.Settings.AtomicBatchTransfers = *arg.AtomicBatchTransfers
	}
	if arg.TxWindow != nil {
		c.Settings.TxWindow = *arg.TxWindow
	}
	if arg.PermittedDrift != nil {
		c.Settings.PermittedDrift = *arg.PermittedDrift
	}
	c.UpdatedAt = l.nowFn() / SECOND
	return l.colStore.Save(c)
}

// Challenge signs a token-creation challenge for (author, asset hash).
// Managers only. Fails until the signing secret is ready.
func (l *Ledger) Challenge(caller types.Principal, arg ChallengeArg) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.collection.IsManager(caller) {
		return nil, genericErrorf("caller is not a manager")
	}
	key, ready := l.secret.get()
	if !ready {
		return nil, ErrNotReady
	}
	payload, err := encMode.Marshal(arg)
	if err != nil {
		return nil, err
	}
	return crypto.SignChallenge(key[:], payload, l.nowFn()/SECOND)
}
