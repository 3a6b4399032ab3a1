package handlers

import (
	"fmt"
	"net/http"

	"github.com/gatherly/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) createComment(eventID, body string) *models.Comment {
	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/comments", eventID), gin.H{"body": body})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	id := suite.decode(w)["comment"].(map[string]interface{})["id"].(string)
	var comment models.Comment
	require.NoError(suite.T(), suite.db.First(&comment, "id = ?", id).Error)
	return &comment
}

func (suite *HandlersTestSuite) TestCreateCommentIncrementsEventCount() {
	event := suite.createEvent(suite.ownerRef(), false)

	suite.createComment(event.ID, "first")
	suite.createComment(event.ID, "second")

	var reloaded models.Event
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", event.ID).Error)
	assert.Equal(suite.T(), 2, reloaded.CommentCount)
}

func (suite *HandlersTestSuite) TestCreateCommentNotifiesOwner() {
	event := suite.createEvent(suite.ownerRef(), false)
	suite.createComment(event.ID, "hello")

	var inbox int64
	suite.db.Model(&models.NotificationRecipient{}).
		Where("account_id = ?", suite.pro.ID).Count(&inbox)
	assert.Equal(suite.T(), int64(1), inbox)
}

func (suite *HandlersTestSuite) TestListCommentsNewestFirst() {
	event := suite.createEvent(suite.ownerRef(), false)
	suite.createComment(event.ID, "first")
	suite.createComment(event.ID, "second")

	w := suite.asUser("GET", fmt.Sprintf("/api/events/%s/comments", event.ID), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	comments := suite.decode(w)["comments"].([]interface{})
	require.Len(suite.T(), comments, 2)
}

func (suite *HandlersTestSuite) TestUpdateCommentKeepsEditHistory() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "orignal")

	w := suite.asUser("PUT", "/api/comments/"+comment.ID, gin.H{"body": "original"})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Comment
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.True(suite.T(), reloaded.Edited)
	assert.Equal(suite.T(), "original", reloaded.Body)
	require.Len(suite.T(), reloaded.EditHistory, 1)
	assert.Equal(suite.T(), "orignal", reloaded.EditHistory[0].PreviousBody)
}

func (suite *HandlersTestSuite) TestUpdateCommentForbiddenForNonAuthor() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "mine")

	w := suite.asOther("PUT", "/api/comments/"+comment.ID, gin.H{"body": "not yours"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	var unchanged models.Comment
	require.NoError(suite.T(), suite.db.First(&unchanged, "id = ?", comment.ID).Error)
	assert.Equal(suite.T(), "mine", unchanged.Body)
	assert.False(suite.T(), unchanged.Edited)
}

func (suite *HandlersTestSuite) TestDeleteCommentForbiddenForNonAuthor() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "keep me")

	w := suite.asOther("DELETE", "/api/comments/"+comment.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

// ----------------------------------------------------------------------------
// Reactions
// ----------------------------------------------------------------------------

// A full toggle cycle: react, re-react idempotently, switch kind,
// clear, and clear again (which must fail).
func (suite *HandlersTestSuite) TestReactionToggleCycle() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "react to me")
	path := "/api/likes/" + comment.ID

	w := suite.asOther("PATCH", path, gin.H{"reactionType": "like"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["reaction_count"])

	// Same kind again holds at one entry
	w = suite.asOther("PATCH", path, gin.H{"reactionType": "like"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["reaction_count"])

	// Switching kind replaces, never appends
	w = suite.asOther("PATCH", path, gin.H{"reactionType": "love"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["reaction_count"])

	var entry models.Reaction
	require.NoError(suite.T(), suite.db.First(&entry, "target_id = ?", comment.ID).Error)
	assert.Equal(suite.T(), models.ReactionLove, entry.Kind)

	// Null clears
	w = suite.asOther("PATCH", path, gin.H{"reactionType": nil})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(0), suite.decode(w)["reaction_count"])

	// Clearing again is a bad request
	w = suite.asOther("PATCH", path, gin.H{"reactionType": nil})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestReactionMissingBodyFieldClears() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "hi")

	// An absent reactionType behaves exactly like an explicit null
	w := suite.asOther("PATCH", "/api/likes/"+comment.ID, gin.H{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestReactionUnknownKind() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "hi")

	w := suite.asOther("PATCH", "/api/likes/"+comment.ID, gin.H{"reactionType": "celebrate"})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestReactionOnUnknownTarget() {
	w := suite.asUser("PATCH", "/api/likes/00000000-0000-0000-0000-000000000000", gin.H{"reactionType": "like"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestReactionsOnReviewTarget() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{
		"body": "wonderful", "rating": 5,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	reviewID := suite.decode(w)["review"].(map[string]interface{})["id"].(string)

	w = suite.asOther("PATCH", "/api/likes/"+reviewID, gin.H{"reactionType": "laugh"})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.asUser("GET", "/api/likes/"+reviewID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), float64(1), body["count"])
	target := body["target"].(map[string]interface{})
	assert.Equal(suite.T(), string(models.KindReview), target["kind"])
}

// ----------------------------------------------------------------------------
// Replies
// ----------------------------------------------------------------------------

func (suite *HandlersTestSuite) TestCreateReplyUnderComment() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "parent")

	w := suite.asOther("POST", "/api/replies", gin.H{"parent_id": comment.ID, "body": "child"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	reply := suite.decode(w)["reply"].(map[string]interface{})
	parent := reply["parent"].(map[string]interface{})
	assert.Equal(suite.T(), string(models.KindComment), parent["kind"])

	var reloaded models.Comment
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.Equal(suite.T(), 1, reloaded.ReplyCount)
}

func (suite *HandlersTestSuite) TestCreateNestedReply() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "root")

	w := suite.asOther("POST", "/api/replies", gin.H{"parent_id": comment.ID, "body": "level 1"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	replyID := suite.decode(w)["reply"].(map[string]interface{})["id"].(string)

	w = suite.asUser("POST", "/api/replies", gin.H{"parent_id": replyID, "body": "level 2"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	parent := suite.decode(w)["reply"].(map[string]interface{})["parent"].(map[string]interface{})
	assert.Equal(suite.T(), string(models.KindReply), parent["kind"])
	assert.Equal(suite.T(), replyID, parent["id"])
}

func (suite *HandlersTestSuite) TestCreateReplyUnknownParent() {
	w := suite.asUser("POST", "/api/replies", gin.H{
		"parent_id": "00000000-0000-0000-0000-000000000000", "body": "orphan",
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestListRepliesByParent() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "root")

	for i := 0; i < 3; i++ {
		w := suite.asOther("POST", "/api/replies", gin.H{"parent_id": comment.ID, "body": fmt.Sprintf("r%d", i)})
		require.Equal(suite.T(), http.StatusCreated, w.Code)
	}

	w := suite.asUser("GET", "/api/replies?parent_id="+comment.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	replies := suite.decode(w)["replies"].([]interface{})
	assert.Len(suite.T(), replies, 3)
}

func (suite *HandlersTestSuite) TestDeleteReplyRemovesDescendants() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "root")

	w := suite.asUser("POST", "/api/replies", gin.H{"parent_id": comment.ID, "body": "level 1"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	r1 := suite.decode(w)["reply"].(map[string]interface{})["id"].(string)

	w = suite.asOther("POST", "/api/replies", gin.H{"parent_id": r1, "body": "level 2"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	r2 := suite.decode(w)["reply"].(map[string]interface{})["id"].(string)

	w = suite.asUser("DELETE", "/api/replies/"+r1, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var remaining int64
	suite.db.Model(&models.Reply{}).Where("id IN ?", []string{r1, r2}).Count(&remaining)
	assert.Equal(suite.T(), int64(0), remaining)
}

func (suite *HandlersTestSuite) TestUpdateReplyKeepsEditHistory() {
	event := suite.createEvent(suite.ownerRef(), false)
	comment := suite.createComment(event.ID, "root")

	w := suite.asUser("POST", "/api/replies", gin.H{"parent_id": comment.ID, "body": "frist"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	replyID := suite.decode(w)["reply"].(map[string]interface{})["id"].(string)

	w = suite.asUser("PUT", "/api/replies/"+replyID, gin.H{"body": "first"})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Reply
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", replyID).Error)
	assert.True(suite.T(), reloaded.Edited)
	assert.Equal(suite.T(), "first", reloaded.Body)
	require.Len(suite.T(), reloaded.EditHistory, 1)
	assert.Equal(suite.T(), "frist", reloaded.EditHistory[0].PreviousBody)
}

// ----------------------------------------------------------------------------
// Reviews
// ----------------------------------------------------------------------------

func (suite *HandlersTestSuite) TestReviewOncePerAuthor() {
	event := suite.createEvent(suite.ownerRef(), false)
	path := fmt.Sprintf("/api/events/%s/reviews", event.ID)

	w := suite.asUser("POST", path, gin.H{"body": "good", "rating": 4})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.asUser("POST", path, gin.H{"body": "changed my mind", "rating": 2})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestOwnerCannotReviewOwnEvent() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asPro("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{
		"body": "flawless", "rating": 5,
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestReviewRatingBounds() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{
		"body": "off the scale", "rating": 6,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestListReviewsAverageRating() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{"body": "ok", "rating": 3})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	w = suite.asOther("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{"body": "great", "rating": 5})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.asUser("GET", fmt.Sprintf("/api/events/%s/reviews", event.ID), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(4), suite.decode(w)["average_rating"])
}

func (suite *HandlersTestSuite) TestUpdateReviewKeepsEditHistory() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/reviews", event.ID), gin.H{"body": "decnt", "rating": 3})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	reviewID := suite.decode(w)["review"].(map[string]interface{})["id"].(string)

	w = suite.asUser("PUT", "/api/reviews/"+reviewID, gin.H{"body": "decent", "rating": 4})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Review
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", reviewID).Error)
	assert.True(suite.T(), reloaded.Edited)
	assert.Equal(suite.T(), "decent", reloaded.Body)
	assert.Equal(suite.T(), 4, reloaded.Rating)
	require.Len(suite.T(), reloaded.EditHistory, 1)
	assert.Equal(suite.T(), "decnt", reloaded.EditHistory[0].PreviousBody)
}
