package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

func TestVisitorUpsertUpdate(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("new anonymous visitor", func(t *testing.T) {
		update := visitorUpsertUpdate(models.UpsertVisitorRequest{VisitorID: "v-1"}, now)
		set := update["$set"].(bson.M)
		onInsert := update["$setOnInsert"].(bson.M)

		assert.Equal(t, true, set["is_online"])
		assert.Equal(t, now, set["last_seen"])
		assert.NotContains(t, set, "name")
		assert.NotContains(t, set, "email")
		assert.Equal(t, models.DefaultVisitorName, onInsert["name"])
		assert.Equal(t, now, onInsert["first_visit"])
	})

	t.Run("provided fields are set, empty ones kept", func(t *testing.T) {
		req := models.UpsertVisitorRequest{VisitorID: "v-1", Name: "Ann", Email: "ann@example.com"}
		update := visitorUpsertUpdate(req, now)
		set := update["$set"].(bson.M)
		onInsert := update["$setOnInsert"].(bson.M)

		assert.Equal(t, "Ann", set["name"])
		assert.Equal(t, "ann@example.com", set["email"])
		assert.NotContains(t, set, "phone")
		assert.NotContains(t, onInsert, "name")
	})

	t.Run("no field in both operators", func(t *testing.T) {
		req := models.UpsertVisitorRequest{VisitorID: "v-1", Name: "Ann", Phone: "1", Location: &models.Location{City: "Hanoi"}}
		update := visitorUpsertUpdate(req, now)
		set := update["$set"].(bson.M)
		for key := range update["$setOnInsert"].(bson.M) {
			assert.NotContains(t, set, key)
		}
	})
}

func TestVisitorListFilter(t *testing.T) {
	assert.Empty(t, visitorListFilter(models.VisitorFilter{}))

	online := true
	f := visitorListFilter(models.VisitorFilter{Online: &online, Search: "a.b"})
	assert.Equal(t, true, f["is_online"])
	or := f["$or"].(bson.A)
	require.Len(t, or, 3)
	re := or[0].(bson.M)["name"].(primitive.Regex)
	assert.Equal(t, `a\.b`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestRecordMessagePipeline(t *testing.T) {
	now := time.Now()

	plain := recordMessagePipeline(nil, now)
	require.Len(t, plain, 1)
	set := plain[0][0].Value.(bson.D)
	keys := make([]string, 0, len(set))
	for _, e := range set {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"message_count", "last_activity", "updated_at"}, keys)

	rt := 12.5
	withResponse := recordMessagePipeline(&rt, now)
	set = withResponse[0][0].Value.(bson.D)
	keys = keys[:0]
	for _, e := range set {
		keys = append(keys, e.Key)
	}
	assert.Contains(t, keys, "avg_response_time")
	assert.Contains(t, keys, "response_count")
}

func TestMarkReadUpdate(t *testing.T) {
	reader := primitive.NewObjectID()
	now := time.Now()
	update := markReadUpdate(reader, now)

	set := update["$set"].(bson.M)
	assert.Equal(t, true, set["is_read"])
	assert.Equal(t, now, set["read_at"])
	receipt := update["$push"].(bson.M)["metadata.read_receipts"].(models.ReadReceipt)
	assert.Equal(t, reader, receipt.UserID)
}

func TestSessionListFilter(t *testing.T) {
	agent := primitive.NewObjectID()
	f := sessionListFilter(models.SessionFilter{Status: models.SessionActive, AgentID: &agent})
	assert.Equal(t, bson.M{"status": models.SessionActive, "agent_id": agent}, f)
	assert.Empty(t, sessionListFilter(models.SessionFilter{}))
}

func TestIndexModels(t *testing.T) {
	idx := indexModels()
	sessions := idx[models.ChatSession{}.CollectionName()]

	var found bool
	for _, m := range sessions {
		if m.Options != nil && m.Options.Name != nil && *m.Options.Name == "one_active_session_per_visitor" {
			found = true
			assert.True(t, *m.Options.Unique)
			assert.Equal(t, bson.M{"status": models.SessionActive}, m.Options.PartialFilterExpression)
		}
	}
	assert.True(t, found, "partial unique index on active sessions")
	assert.Contains(t, idx, models.Note{}.CollectionName())
}

func TestMigrationStatusUpdate(t *testing.T) {
	now := time.Now()
	running := migrationStatusUpdate("m", "running", nil, now)["$set"].(bson.M)
	assert.Equal(t, now, running["started_at"])
	assert.NotContains(t, running, "completed_at")

	done := migrationStatusUpdate("m", "completed", &MigrationResult{RecordsUpdated: 2}, now)["$set"].(bson.M)
	assert.Equal(t, now, done["completed_at"])
	assert.Equal(t, 2, done["result"].(*MigrationResult).RecordsUpdated)
}
