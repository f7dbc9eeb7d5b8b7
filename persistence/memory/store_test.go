package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *InMemoryStore,
	){
		"opportunity round trip":        testOpportunityRoundTrip,
		"contact lookup by email":       testContactByEmail,
		"missing keys are not found":    testNotFound,
		"tx commits all writes":         testTxCommit,
		"failed tx leaves no partials":  testTxRollback,
		"email insert indexes message":  testEmailIndexes,
		"stage update applied under tx": testStageUpdate,
	} {
		t.Run(scenario, func(t *testing.T) {
			store := NewInMemoryStore()
			require.NoError(t, store.SaveOpportunity(context.Background(), &model.Opportunity{
				Id: "opp-1", OrganizationId: "org-1", Name: "Acme renewal", Stage: "qualification",
			}))
			fn(t, store)
		})
	}
}

func testOpportunityRoundTrip(t *testing.T, store *InMemoryStore) {
	opp, err := store.GetOpportunity(context.Background(), "opp-1")
	require.NoError(t, err)
	require.Equal(t, "Acme renewal", opp.Name)
}

func testContactByEmail(t *testing.T, store *InMemoryStore) {
	require.NoError(t, store.SaveContact(context.Background(), &model.Contact{
		Id: "c-1", OpportunityId: "opp-1", Name: "Alice", Email: "alice@acme.com",
	}))

	contact, err := store.GetContactByEmail(context.Background(), "opp-1", "alice@acme.com")
	require.NoError(t, err)
	require.Equal(t, "c-1", contact.Id)

	_, err = store.GetContactByEmail(context.Background(), "opp-other", "alice@acme.com")
	require.Error(t, err)
	require.True(t, persistence.IsNotFound(err))
}

func testNotFound(t *testing.T, store *InMemoryStore) {
	_, err := store.GetOpportunity(context.Background(), "missing")
	require.True(t, persistence.IsNotFound(err))

	_, err = store.GetActivity(context.Background(), "missing")
	require.True(t, persistence.IsNotFound(err))

	_, err = store.GetEmailActivityByMessageId(context.Background(), "missing")
	require.True(t, persistence.IsNotFound(err))
}

func testTxCommit(t *testing.T, store *InMemoryStore) {
	err := store.WithTx(context.Background(), func(tx persistence.Tx) error {
		if err := tx.InsertActivity(context.Background(), &model.Activity{
			Id: "a-1", OpportunityId: "opp-1", Type: model.ACTION_TYPE_CALL,
		}); err != nil {
			return err
		}
		return tx.InsertActivity(context.Background(), &model.Activity{
			Id: "a-2", OpportunityId: "opp-1", Type: model.ACTION_TYPE_TASK,
		})
	})
	require.NoError(t, err)

	activities, err := store.ListActivities(context.Background(), "opp-1")
	require.NoError(t, err)
	require.Len(t, activities, 2)
}

func testTxRollback(t *testing.T, store *InMemoryStore) {
	err := store.WithTx(context.Background(), func(tx persistence.Tx) error {
		if err := tx.InsertActivity(context.Background(), &model.Activity{
			Id: "a-1", OpportunityId: "opp-1", Type: model.ACTION_TYPE_CALL,
		}); err != nil {
			return err
		}
		return fmt.Errorf("execution blew up")
	})
	require.Error(t, err)

	activities, err := store.ListActivities(context.Background(), "opp-1")
	require.NoError(t, err)
	require.Empty(t, activities)
}

func testEmailIndexes(t *testing.T, store *InMemoryStore) {
	err := store.WithTx(context.Background(), func(tx persistence.Tx) error {
		return tx.InsertEmailActivity(context.Background(), &model.EmailActivity{
			Id: "e-1", OpportunityId: "opp-1", MessageId: "msg-1", ThreadId: "thread-1",
		})
	})
	require.NoError(t, err)

	byMessage, err := store.GetEmailActivityByMessageId(context.Background(), "msg-1")
	require.NoError(t, err)
	require.Equal(t, "e-1", byMessage.Id)

	exists, err := store.ThreadExists(context.Background(), "thread-1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.ThreadExists(context.Background(), "thread-other")
	require.NoError(t, err)
	require.False(t, exists)
}

func testStageUpdate(t *testing.T, store *InMemoryStore) {
	err := store.WithTx(context.Background(), func(tx persistence.Tx) error {
		return tx.UpdateOpportunityStage(context.Background(), "opp-1", "proposal")
	})
	require.NoError(t, err)

	opp, err := store.GetOpportunity(context.Background(), "opp-1")
	require.NoError(t, err)
	require.Equal(t, "proposal", opp.Stage)
}
