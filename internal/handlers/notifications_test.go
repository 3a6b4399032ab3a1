package handlers

import (
	"fmt"
	"net/http"

	"github.com/gatherly/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) createNotificationFor(recipientIDs []string) string {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", "/api/notifications", gin.H{
		"type":          "event_invite",
		"reference_id":  event.ID,
		"message":       "come along",
		"recipient_ids": recipientIDs,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	return suite.decode(w)["notification"].(map[string]interface{})["id"].(string)
}

func (suite *HandlersTestSuite) TestCreateNotificationWritesInboxRows() {
	id := suite.createNotificationFor([]string{suite.other.ID, suite.pro.ID})

	var rows int64
	suite.db.Model(&models.NotificationRecipient{}).Where("notification_id = ?", id).Count(&rows)
	assert.Equal(suite.T(), int64(2), rows)
}

func (suite *HandlersTestSuite) TestCreateNotificationSkipsUnknownRecipients() {
	id := suite.createNotificationFor([]string{suite.other.ID, "00000000-0000-0000-0000-000000000000"})

	var rows int64
	suite.db.Model(&models.NotificationRecipient{}).Where("notification_id = ?", id).Count(&rows)
	assert.Equal(suite.T(), int64(1), rows)
}

func (suite *HandlersTestSuite) TestCreateNotificationNoValidRecipients() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", "/api/notifications", gin.H{
		"type":          "event_invite",
		"reference_id":  event.ID,
		"recipient_ids": []string{"00000000-0000-0000-0000-000000000000"},
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestCreateNotificationUnknownReference() {
	w := suite.asUser("POST", "/api/notifications", gin.H{
		"type":          "event_invite",
		"reference_id":  "00000000-0000-0000-0000-000000000000",
		"recipient_ids": []string{suite.other.ID},
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestInboxVisibilityPerRecipient() {
	suite.createNotificationFor([]string{suite.other.ID})

	w := suite.asOther("GET", "/api/notifications", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["notifications"].([]interface{}), 1)

	// The pro was not a recipient and sees nothing
	w = suite.asPro("GET", "/api/notifications", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["notifications"].([]interface{}), 0)
}

func (suite *HandlersTestSuite) TestMarkSeenUpdatesUnseenCount() {
	id := suite.createNotificationFor([]string{suite.other.ID})

	w := suite.asOther("GET", "/api/notifications", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["unseen_count"])

	w = suite.asOther("PATCH", fmt.Sprintf("/api/notifications/%s/seen", id), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.asOther("GET", "/api/notifications", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(0), suite.decode(w)["unseen_count"])
}

func (suite *HandlersTestSuite) TestMarkSeenNotARecipient() {
	id := suite.createNotificationFor([]string{suite.other.ID})

	w := suite.asPro("PATCH", fmt.Sprintf("/api/notifications/%s/seen", id), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteHidesOnlyOwnInboxEntry() {
	id := suite.createNotificationFor([]string{suite.other.ID, suite.pro.ID})

	w := suite.asOther("DELETE", "/api/notifications/"+id, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.asOther("GET", "/api/notifications", nil)
	assert.Len(suite.T(), suite.decode(w)["notifications"].([]interface{}), 0)

	// The other recipient's inbox is untouched
	w = suite.asPro("GET", "/api/notifications", nil)
	assert.Len(suite.T(), suite.decode(w)["notifications"].([]interface{}), 1)

	// The notification row itself survives
	var rows int64
	suite.db.Model(&models.Notification{}).Where("id = ?", id).Count(&rows)
	assert.Equal(suite.T(), int64(1), rows)
}

func (suite *HandlersTestSuite) TestDeleteTwiceNotFound() {
	id := suite.createNotificationFor([]string{suite.other.ID})

	require.Equal(suite.T(), http.StatusOK, suite.asOther("DELETE", "/api/notifications/"+id, nil).Code)
	assert.Equal(suite.T(), http.StatusNotFound, suite.asOther("DELETE", "/api/notifications/"+id, nil).Code)
}
