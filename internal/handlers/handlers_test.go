package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// HandlersTestSuite exercises the HTTP surface against an in-memory
// store, with authentication stubbed by headers.
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers

	user  *models.User
	other *models.User
	pro   *models.Professional
}

func (suite *HandlersTestSuite) SetupSuite() {
	logger.Log = zap.NewNop()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:handlers_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.Professional{},
		&models.Event{},
		&models.EventParticipant{},
		&models.Comment{},
		&models.Reply{},
		&models.Review{},
		&models.Reaction{},
		&models.Notification{},
		&models.NotificationRecipient{},
	))

	suite.db = db
	suite.handlers = NewHandlers(db)

	suite.router = gin.New()
	suite.setupRoutes()
}

func (suite *HandlersTestSuite) SetupTest() {
	for _, model := range []interface{}{
		&models.NotificationRecipient{}, &models.Notification{},
		&models.Reaction{}, &models.Reply{}, &models.Comment{},
		&models.Review{}, &models.EventParticipant{}, &models.Event{},
		&models.Professional{}, &models.User{},
	} {
		suite.db.Unscoped().Where("1 = 1").Delete(model)
	}

	suite.user = &models.User{Email: "ana@example.com", Username: "ana", DisplayName: "Ana", PasswordHash: "x"}
	require.NoError(suite.T(), suite.db.Create(suite.user).Error)

	suite.other = &models.User{Email: "bo@example.com", Username: "bo", DisplayName: "Bo", PasswordHash: "x"}
	require.NoError(suite.T(), suite.db.Create(suite.other).Error)

	suite.pro = &models.Professional{Email: "venue@example.com", Username: "thevenue", BusinessName: "The Venue", PasswordHash: "x"}
	require.NoError(suite.T(), suite.db.Create(suite.pro).Error)
}

// setupRoutes mirrors the production route table with a header-based
// auth stub.
func (suite *HandlersTestSuite) setupRoutes() {
	authStub := func(c *gin.Context) {
		accountID := c.GetHeader("X-Account-ID")
		if accountID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		kind := c.GetHeader("X-Account-Kind")
		if kind == "" {
			kind = string(models.KindUser)
		}
		c.Set("account_id", accountID)
		c.Set("account_kind", kind)
		c.Next()
	}

	api := suite.router.Group("/api", authStub)

	api.GET("/accounts/:id", suite.handlers.GetAccount)
	api.PUT("/accounts/me", suite.handlers.UpdateMyAccount)
	api.DELETE("/accounts/me", suite.handlers.DeleteMyAccount)

	api.POST("/events", suite.handlers.CreateEvent)
	api.GET("/events", suite.handlers.ListEvents)
	api.GET("/events/:id", suite.handlers.GetEvent)
	api.PUT("/events/:id", suite.handlers.UpdateEvent)
	api.DELETE("/events/:id", suite.handlers.DeleteEvent)
	api.POST("/events/:id/join", suite.handlers.JoinEvent)
	api.DELETE("/events/:id/join", suite.handlers.LeaveEvent)
	api.GET("/events/:id/participants", suite.handlers.ListParticipants)
	api.POST("/events/:id/invite", suite.handlers.InviteToEvent)
	api.POST("/events/:id/media", suite.handlers.UploadEventMedia)
	api.DELETE("/events/:id/media/*key", suite.handlers.RemoveEventMedia)
	api.POST("/events/:id/comments", suite.handlers.CreateComment)
	api.GET("/events/:id/comments", suite.handlers.ListComments)
	api.POST("/events/:id/reviews", suite.handlers.CreateReview)
	api.GET("/events/:id/reviews", suite.handlers.ListReviews)

	api.GET("/comments/:id", suite.handlers.GetComment)
	api.PUT("/comments/:id", suite.handlers.UpdateComment)
	api.DELETE("/comments/:id", suite.handlers.DeleteComment)

	api.POST("/replies", suite.handlers.CreateReply)
	api.GET("/replies", suite.handlers.ListReplies)
	api.GET("/replies/:id", suite.handlers.GetReply)
	api.PUT("/replies/:id", suite.handlers.UpdateReply)
	api.DELETE("/replies/:id", suite.handlers.DeleteReply)

	api.GET("/reviews/:id", suite.handlers.GetReview)
	api.PUT("/reviews/:id", suite.handlers.UpdateReview)
	api.DELETE("/reviews/:id", suite.handlers.DeleteReview)

	api.PATCH("/likes/:id", suite.handlers.ToggleReaction)
	api.GET("/likes/:id", suite.handlers.ListReactions)

	api.POST("/notifications", suite.handlers.CreateNotification)
	api.GET("/notifications", suite.handlers.ListNotifications)
	api.PATCH("/notifications/:id/seen", suite.handlers.MarkNotificationSeen)
	api.DELETE("/notifications/:id", suite.handlers.DeleteNotification)
}

// request performs an authenticated JSON request as the given account.
func (suite *HandlersTestSuite) request(method, path string, body interface{}, accountID string, kind models.EntityKind) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accountID != "" {
		req.Header.Set("X-Account-ID", accountID)
		req.Header.Set("X-Account-Kind", string(kind))
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) asUser(method, path string, body interface{}) *httptest.ResponseRecorder {
	return suite.request(method, path, body, suite.user.ID, models.KindUser)
}

func (suite *HandlersTestSuite) asOther(method, path string, body interface{}) *httptest.ResponseRecorder {
	return suite.request(method, path, body, suite.other.ID, models.KindUser)
}

func (suite *HandlersTestSuite) asPro(method, path string, body interface{}) *httptest.ResponseRecorder {
	return suite.request(method, path, body, suite.pro.ID, models.KindProfessional)
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (suite *HandlersTestSuite) createEvent(owner models.Ref, private bool) *models.Event {
	event := &models.Event{Owner: owner, Title: "Opening night", Private: private}
	require.NoError(suite.T(), suite.db.Create(event).Error)
	return event
}

func (suite *HandlersTestSuite) ownerRef() models.Ref {
	return models.Ref{ID: suite.pro.ID, Kind: models.KindProfessional}
}

func (suite *HandlersTestSuite) userRef() models.Ref {
	return models.Ref{ID: suite.user.ID, Kind: models.KindUser}
}

// ----------------------------------------------------------------------------
// Events
// ----------------------------------------------------------------------------

func (suite *HandlersTestSuite) TestCreateAndGetEvent() {
	w := suite.asPro("POST", "/api/events", gin.H{
		"title":     "Launch party",
		"starts_at": "2026-10-01T19:00:00Z",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	created := suite.decode(w)["event"].(map[string]interface{})
	eventID := created["id"].(string)

	w = suite.asUser("GET", "/api/events/"+eventID, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestCreateEventRequiresTitle() {
	w := suite.asPro("POST", "/api/events", gin.H{"starts_at": "2026-10-01T19:00:00Z"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestPrivateEventHiddenFromOutsiders() {
	event := suite.createEvent(suite.ownerRef(), true)

	w := suite.asUser("GET", fmt.Sprintf("/api/events/%s", event.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.asPro("GET", fmt.Sprintf("/api/events/%s", event.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestInviteOpensPrivateEvent() {
	event := suite.createEvent(suite.ownerRef(), true)

	w := suite.asPro("POST", fmt.Sprintf("/api/events/%s/invite", event.ID), gin.H{
		"account_ids": []string{suite.user.ID},
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.asUser("GET", fmt.Sprintf("/api/events/%s", event.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestJoinEventTwiceConflicts() {
	event := suite.createEvent(suite.ownerRef(), false)
	path := fmt.Sprintf("/api/events/%s/join", event.ID)

	w := suite.asUser("POST", path, nil)
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.asUser("POST", path, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestLeaveEventWithoutJoining() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("DELETE", fmt.Sprintf("/api/events/%s/join", event.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestJoinLeaveRoundTrip() {
	event := suite.createEvent(suite.ownerRef(), false)
	path := fmt.Sprintf("/api/events/%s/join", event.ID)

	require.Equal(suite.T(), http.StatusCreated, suite.asUser("POST", path, nil).Code)
	require.Equal(suite.T(), http.StatusOK, suite.asUser("DELETE", path, nil).Code)
	assert.Equal(suite.T(), http.StatusNotFound, suite.asUser("DELETE", path, nil).Code)
}

func (suite *HandlersTestSuite) TestUpdateEventOwnerOnly() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("PUT", fmt.Sprintf("/api/events/%s", event.ID), gin.H{"title": "Hijacked"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	var unchanged models.Event
	require.NoError(suite.T(), suite.db.First(&unchanged, "id = ?", event.ID).Error)
	assert.Equal(suite.T(), "Opening night", unchanged.Title)
}

// stubStore records removals and hands back deterministic upload keys.
type stubStore struct {
	uploads int
	removed []string
}

func (s *stubStore) Upload(_ context.Context, _ []byte, contentType, ownerID string) (*storage.UploadResult, error) {
	s.uploads++
	key := fmt.Sprintf("media/%s/%d", ownerID, s.uploads)
	return &storage.UploadResult{
		URL:  "https://cdn.example.com/" + key,
		Key:  key,
		Kind: models.MediaImage,
	}, nil
}

func (s *stubStore) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	return nil
}

func (suite *HandlersTestSuite) uploadMedia(eventID string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "flyer.png")
	require.NoError(suite.T(), err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), mw.Close())

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/events/%s/media", eventID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Account-ID", suite.pro.ID)
	req.Header.Set("X-Account-Kind", string(models.KindProfessional))

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) TestUploadEventMediaPersistsAttachment() {
	store := &stubStore{}
	suite.handlers.SetMediaStore(store)
	defer suite.handlers.SetMediaStore(nil)

	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.uploadMedia(event.ID)
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var reloaded models.Event
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", event.ID).Error)
	require.Len(suite.T(), reloaded.Media, 1)
	assert.Equal(suite.T(), models.MediaImage, reloaded.Media[0].Kind)
	assert.NotEmpty(suite.T(), reloaded.Media[0].Key)
}

func (suite *HandlersTestSuite) TestRemoveEventMediaDetaches() {
	store := &stubStore{}
	suite.handlers.SetMediaStore(store)
	defer suite.handlers.SetMediaStore(nil)

	event := suite.createEvent(suite.ownerRef(), false)
	require.Equal(suite.T(), http.StatusCreated, suite.uploadMedia(event.ID).Code)

	var attached models.Event
	require.NoError(suite.T(), suite.db.First(&attached, "id = ?", event.ID).Error)
	require.Len(suite.T(), attached.Media, 1)

	w := suite.asPro("DELETE", fmt.Sprintf("/api/events/%s/media/%s", event.ID, attached.Media[0].Key), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Event
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", event.ID).Error)
	assert.Empty(suite.T(), reloaded.Media)
	assert.Equal(suite.T(), []string{attached.Media[0].Key}, store.removed)
}

func (suite *HandlersTestSuite) TestUpdateEventPersistsAccessList() {
	event := suite.createEvent(suite.ownerRef(), true)

	w := suite.asPro("PUT", fmt.Sprintf("/api/events/%s", event.ID), gin.H{
		"access_only_to": []string{suite.user.ID, suite.other.ID},
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Event
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", event.ID).Error)
	assert.Equal(suite.T(), models.AccessList{suite.user.ID, suite.other.ID}, reloaded.AccessOnlyTo)
}

func (suite *HandlersTestSuite) TestDeleteEventCascades() {
	event := suite.createEvent(suite.ownerRef(), false)

	w := suite.asUser("POST", fmt.Sprintf("/api/events/%s/comments", event.ID), gin.H{"body": "see you there"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.asPro("DELETE", fmt.Sprintf("/api/events/%s", event.ID), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var comments int64
	suite.db.Model(&models.Comment{}).Where("event_id = ?", event.ID).Count(&comments)
	assert.Equal(suite.T(), int64(0), comments)
}

func (suite *HandlersTestSuite) TestRequestWithoutAuth() {
	w := suite.request("GET", "/api/events", nil, "", "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
