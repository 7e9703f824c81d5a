package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageForConversations(t *testing.T) {
	assert.Equal(t, StageNewConnection, StageForConversations(0))
	assert.Equal(t, StageNewConnection, StageForConversations(2))
	assert.Equal(t, StageGettingAcquainted, StageForConversations(3))
	assert.Equal(t, StageFriendlyAcquaintance, StageForConversations(8))
	assert.Equal(t, StageGoodFriend, StageForConversations(15))
	assert.Equal(t, StageCloseFriend, StageForConversations(30))
	assert.Equal(t, StageCloseFriend, StageForConversations(500))
}

func TestAdvanceStage(t *testing.T) {
	// one step at a time even when the count would justify jumping
	assert.Equal(t, StageGettingAcquainted, AdvanceStage(StageNewConnection, 20))
	assert.Equal(t, StageFriendlyAcquaintance, AdvanceStage(StageGettingAcquainted, 20))

	// no movement below the next threshold
	assert.Equal(t, StageNewConnection, AdvanceStage(StageNewConnection, 2))

	// never regresses
	assert.Equal(t, StageCloseFriend, AdvanceStage(StageCloseFriend, 1))
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, 1, ClampImportance(0))
	assert.Equal(t, 3, ClampImportance(3))
	assert.Equal(t, 5, ClampImportance(9))
}
