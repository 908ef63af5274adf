package session

import (
	"testing"
	"time"

	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential() salesforce.Credential {
	return salesforce.Credential{
		AccessToken: "token",
		InstanceURL: "https://org.my.salesforce.com",
		OrgID:       "00D000000000001",
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(time.Hour)

	id := store.Create(testCredential())
	require.NotEmpty(t, id)

	cred, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "token", cred.AccessToken)
	assert.Equal(t, 1, store.Len())
}

func TestStore_UniqueIDs(t *testing.T) {
	store := NewStore(time.Hour)

	a := store.Create(testCredential())
	b := store.Create(testCredential())
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())
}

func TestStore_Replace(t *testing.T) {
	store := NewStore(time.Hour)

	id := store.Create(testCredential())
	updated := testCredential()
	updated.AccessToken = "refreshed"
	store.Replace(id, updated)

	cred, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "refreshed", cred.AccessToken)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(time.Hour)

	id := store.Create(testCredential())
	store.Delete(id)

	_, ok := store.Get(id)
	assert.False(t, ok)

	// Deleting twice is fine.
	store.Delete(id)
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(10 * time.Millisecond)

	id := store.Create(testCredential())
	time.Sleep(30 * time.Millisecond)

	_, ok := store.Get(id)
	assert.False(t, ok)
}

func TestStore_UnknownID(t *testing.T) {
	store := NewStore(time.Hour)

	_, ok := store.Get("nope")
	assert.False(t, ok)
}
