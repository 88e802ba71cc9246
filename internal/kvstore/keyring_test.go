// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "neardeal/cli/internal/errors"
)

// failingRing rejects writes to one key.
type failingRing struct {
	*keyring.ArrayKeyring
	failKey string
}

func (f *failingRing) Set(item keyring.Item) error {
	if item.Key == f.failKey {
		return errors.New("keychain locked")
	}
	return f.ArrayKeyring.Set(item)
}

func TestKeyring_Contract(t *testing.T) {
	runStoreContract(t, NewKeyringWithRing(keyring.NewArrayKeyring(nil), zerolog.Nop()))
}

func TestKeyring_MultiSetRollsBackOnFailure(t *testing.T) {
	ring := &failingRing{
		ArrayKeyring: keyring.NewArrayKeyring([]keyring.Item{{Key: "a", Data: []byte("old")}}),
		failKey:      "c",
	}
	k := NewKeyringWithRing(ring, zerolog.Nop())
	ctx := context.Background()

	err := k.MultiSet(ctx, map[string]string{"a": "new", "b": "new", "c": "new"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))

	got, err := k.MultiGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "old"}, got, "prior value restored and new key removed")
}
