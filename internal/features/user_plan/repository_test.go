package user_plan

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

func TestRepositoryUpdateAssignedBy(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("updates siblings and excludes the source", func(mt *mtest.T) {
		repo := NewUserPlanRepository(&database.MongodbDB{Client: mt.Client, DB: mt.DB})
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(2)},
			bson.E{Key: "nModified", Value: int32(2)},
		))

		assigner, planID, source := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		n, err := repo.UpdateAssignedBy(context.Background(), assigner, planID, source, bson.M{"mrp": 120.0})
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		assert.Equal(mt, "user_plans", started.Command.Lookup("update").StringValue())
	})

	mt.Run("command error", func(mt *mtest.T) {
		repo := NewUserPlanRepository(&database.MongodbDB{Client: mt.Client, DB: mt.DB})
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Name: "InterruptedAtShutdown", Message: "interrupted",
		}))

		_, err := repo.UpdateAssignedBy(context.Background(),
			primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), bson.M{"is_active": false})
		assert.Error(mt, err)
	})
}
