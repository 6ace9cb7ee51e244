package shmregion_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/shmregion"
	"github.com/calvinalkan/shmregion/internal/lockprim"
)

func Test_Config_AddLock_Returns_RangeDoesNotFit_When_Range_Exceeds_UserSize(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig().SetUserSize(100)

	_, err := cfg.AddLock(lockprim.Mutex, 80, 40)

	require.Error(t, err)
	assert.ErrorIs(t, err, shmregion.ErrRangeDoesNotFit)
}

func Test_Config_AddLock_Returns_RangeOverlapsExisting_When_Ranges_Intersect(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig().SetUserSize(256)

	cfg, err := cfg.AddLock(lockprim.Mutex, 0, 128)
	require.NoError(t, err)

	_, err = cfg.AddLock(lockprim.Mutex, 64, 64)

	require.Error(t, err)
	assert.ErrorIs(t, err, shmregion.ErrRangeOverlapsExisting)
}

func Test_Config_AddLock_Accepts_NonOverlapping_Ranges_In_Order(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig().SetUserSize(256)

	cfg, err := cfg.AddLock(lockprim.Mutex, 0, 128)
	require.NoError(t, err)

	cfg, err = cfg.AddLock(lockprim.RWMutex, 128, 128)
	require.NoError(t, err)

	require.Equal(t, 2, cfg.NumLocks())

	first := cfg.GetLock(0)
	assert.Equal(t, uint64(0), first.Offset)
	assert.Equal(t, uint64(128), first.Length)

	second := cfg.GetLock(1)
	assert.Equal(t, uint64(128), second.Offset)
	assert.Equal(t, uint64(128), second.Length)
}

func Test_Config_AddEvent_Appends_In_Order(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig()

	cfg, err := cfg.AddEvent(lockprim.ManualResetEvent)
	require.NoError(t, err)

	cfg, err = cfg.AddEvent(lockprim.AutoResetEvent)
	require.NoError(t, err)

	require.Equal(t, 2, cfg.NumEvents())
	assert.Equal(t, lockprim.ManualResetEvent.UID(), cfg.GetEvent(0).Kind.UID())
	assert.Equal(t, lockprim.AutoResetEvent.UID(), cfg.GetEvent(1).Kind.UID())
}

func Test_Config_AddLock_Returns_InvalidInput_When_Kind_Is_Nil(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig().SetUserSize(64)

	_, err := cfg.AddLock(nil, 0, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shmregion.ErrInvalidInput))
}

func Test_Config_IsOwner_Is_False_Before_Create_Or_Open(t *testing.T) {
	t.Parallel()

	cfg := shmregion.NewConfig()
	assert.False(t, cfg.IsOwner())
}
