package custom_role

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRepositoryCountSoleHolders(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matches single-permission lists", func(mt *mtest.T) {
		repo := NewCustomRoleRepository(&database.MongodbDB{Client: mt.Client, DB: mt.DB})
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}))

		permID := primitive.NewObjectID()
		n, err := repo.CountSoleHolders(context.Background(), permID)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "aggregate", started.CommandName)

		match := started.Command.Lookup("pipeline", "0", "$match", "permissions")
		assert.EqualValues(mt, 1, match.Document().Lookup("$size").AsInt64())
		assert.Equal(mt, permID, match.Document().Lookup("$all", "0").ObjectID())
	})
}
