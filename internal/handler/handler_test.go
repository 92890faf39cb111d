package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/repository"
	"github.com/Shivanand-hulikatti/checkedin/internal/service"
	"github.com/Shivanand-hulikatti/checkedin/internal/service/mocks"
)

type testAPI struct {
	venues   *mocks.VenueStore
	checkins *mocks.CheckinStore
	messages *mocks.MessageStore
	settings *mocks.SettingStore
	broker   *realtime.LocalBroker
	tokens   *TokenIssuer
	router   http.Handler
}

var ana = model.Session{VenueID: 1, Nickname: "ana", Gender: model.Female, InterestedIn: model.Men, Description: "red jacket"}

func checkinOf(sess model.Session) *model.Checkin {
	return &model.Checkin{
		ID:           sess.CheckinID,
		VenueID:      sess.VenueID,
		Nickname:     sess.Nickname,
		Gender:       sess.Gender,
		InterestedIn: sess.InterestedIn,
		Description:  sess.Description,
		Active:       true,
	}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	a := &testAPI{
		venues:   new(mocks.VenueStore),
		checkins: new(mocks.CheckinStore),
		messages: new(mocks.MessageStore),
		settings: new(mocks.SettingStore),
		broker:   realtime.NewLocalBroker(),
		tokens:   tokens,
	}
	rules := service.DefaultRules()
	h := New(
		service.NewVenueService(a.venues),
		service.NewCheckinService(a.venues, a.checkins, a.messages, a.settings, a.broker, rules),
		service.NewMessageService(a.checkins, a.messages, a.broker, rules),
		tokens,
		a.broker,
	)
	a.router = NewRouter(h, RouterOptions{})
	return a
}

func (a *testAPI) token(t *testing.T, sess model.Session) string {
	t.Helper()
	tok, err := a.tokens.Issue(sess)
	require.NoError(t, err)
	return tok
}

// present makes sess's checkin active for every following lookup.
func (a *testAPI) present(sess model.Session) {
	a.checkins.On("FindActive", mock.Anything, sess.VenueID, sess.Nickname).Return(checkinOf(sess), nil)
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListVenues(t *testing.T) {
	a := newTestAPI(t)
	a.venues.On("ListActive", mock.Anything).Return([]model.Venue{{ID: 1, Name: "Bar Uno", Active: true}}, nil).Once()

	rec := a.do(t, http.MethodGet, "/venues", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	venues := decode[[]model.Venue](t, rec)
	require.Len(t, venues, 1)
	assert.Equal(t, "Bar Uno", venues[0].Name)
}

func TestCheckIn_Created(t *testing.T) {
	a := newTestAPI(t)
	a.venues.On("GetByID", mock.Anything, int64(1)).Return(&model.Venue{ID: 1, Active: true}, nil).Once()
	a.checkins.On("CountActiveByGender", mock.Anything, int64(1), model.Female).Return(0, nil).Once()
	a.checkins.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	rec := a.do(t, http.MethodPost, "/checkins", model.CheckinRequest{
		VenueID: 1, Nickname: "ana", Gender: "female", InterestedIn: "men", Description: "red jacket",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[model.CheckinResponse](t, rec)
	assert.Equal(t, ana, resp.Session)
	sess, err := a.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, ana, sess)
}

func TestCheckIn_Errors(t *testing.T) {
	valid := model.CheckinRequest{VenueID: 1, Nickname: "ana", Gender: "female", InterestedIn: "men", Description: "red jacket"}

	t.Run("malformed body", func(t *testing.T) {
		a := newTestAPI(t)
		req := httptest.NewRequest(http.MethodPost, "/checkins", strings.NewReader(`{"venue_id":`))
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		a := newTestAPI(t)
		req := valid
		req.Description = ""
		rec := a.do(t, http.MethodPost, "/checkins", req, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[model.ErrorResponse](t, rec).Error, "description")
	})

	t.Run("venue missing", func(t *testing.T) {
		a := newTestAPI(t)
		a.venues.On("GetByID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound).Once()
		rec := a.do(t, http.MethodPost, "/checkins", valid, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("nickname taken", func(t *testing.T) {
		a := newTestAPI(t)
		a.venues.On("GetByID", mock.Anything, int64(1)).Return(&model.Venue{ID: 1, Active: true}, nil).Once()
		a.checkins.On("CountActiveByGender", mock.Anything, int64(1), model.Female).Return(0, nil).Once()
		a.checkins.On("Create", mock.Anything, mock.Anything).Return(repository.ErrNicknameTaken).Once()
		rec := a.do(t, http.MethodPost, "/checkins", valid, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("capacity reached", func(t *testing.T) {
		a := newTestAPI(t)
		limit := 5
		a.venues.On("GetByID", mock.Anything, int64(1)).Return(&model.Venue{ID: 1, Active: true, MaxActiveFemales: &limit}, nil).Once()
		a.checkins.On("CountActiveByGender", mock.Anything, int64(1), model.Female).Return(5, nil).Once()
		rec := a.do(t, http.MethodPost, "/checkins", valid, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, service.ErrCapacityReached.Error(), decode[model.ErrorResponse](t, rec).Error)
	})
}

func TestAuthentication(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/matches", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/matches", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(ana)
	require.NoError(t, err)
	rec = a.do(t, http.MethodGet, "/matches", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired := a.token(t, ana)
	a.tokens.now = time.Now
	rec = a.do(t, http.MethodGet, "/matches", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestGetSession(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, ana)

	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(checkinOf(ana), nil).Once()
	rec := a.do(t, http.MethodGet, "/session", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ana, decode[model.Session](t, rec))

	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(nil, repository.ErrNotFound).Once()
	rec = a.do(t, http.MethodGet, "/session", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaleTokenIsRejected(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, ana)
	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(nil, repository.ErrNotFound)

	requests := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/session", nil},
		{http.MethodGet, "/matches", nil},
		{http.MethodGet, "/matches/beto/quota", nil},
		{http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "hola"}},
		{http.MethodGet, "/conversations/beto", nil},
		{http.MethodGet, "/inbox", nil},
		{http.MethodPost, "/checkout", nil},
	}
	for _, req := range requests {
		t.Run(req.method+" "+req.path, func(t *testing.T) {
			rec := a.do(t, req.method, req.path, req.body, tok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
		})
	}

	a.checkins.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
	a.checkins.AssertNotCalled(t, "CheckoutByNickname", mock.Anything, mock.Anything, mock.Anything)
	a.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	a.messages.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	a.messages.AssertNotCalled(t, "ListInbox", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenForReusedNicknameIsRejected(t *testing.T) {
	a := newTestAPI(t)
	old := ana
	old.CheckinID = uuid.New()
	tok := a.token(t, old)

	newcomer := ana
	newcomer.CheckinID = uuid.New()
	a.present(newcomer)

	rec := a.do(t, http.MethodGet, "/inbox", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "hola"}, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a.messages.AssertNotCalled(t, "ListInbox", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	a.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendAfterCheckout(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, ana)

	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(checkinOf(ana), nil).Once()
	a.checkins.On("CheckoutByNickname", mock.Anything, int64(1), "ana").Return(repository.CheckoutOK, nil).Once()
	rec := a.do(t, http.MethodPost, "/checkout", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(nil, repository.ErrNotFound)
	rec = a.do(t, http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "hola"}, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodGet, "/matches", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodGet, "/inbox", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListMatches(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	a.checkins.On("ListActive", mock.Anything, int64(1)).Return([]model.Checkin{
		{VenueID: 1, Nickname: "beto", Gender: model.Male, InterestedIn: model.Women},
		{VenueID: 1, Nickname: "carlos", Gender: model.Male, InterestedIn: model.Men},
	}, nil).Once()
	a.messages.On("CountSent", mock.Anything, int64(1), "ana", "beto").Return(1, nil).Once()

	rec := a.do(t, http.MethodGet, "/matches", nil, a.token(t, ana))
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]model.Match](t, rec)
	require.Len(t, matches, 1)
	assert.Equal(t, "beto", matches[0].Nickname)
	assert.Equal(t, model.Quota{Used: 1, Remaining: 2}, matches[0].Quota)
}

func TestGetQuota(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	a.messages.On("CountSent", mock.Anything, int64(1), "ana", "beto").Return(2, nil).Once()

	rec := a.do(t, http.MethodGet, "/matches/beto/quota", nil, a.token(t, ana))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Quota{Used: 2, Remaining: 1}, decode[model.Quota](t, rec))
}

func TestSendMessage(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	tok := a.token(t, ana)
	beto := &model.Checkin{VenueID: 1, Nickname: "beto", Active: true}

	a.checkins.On("FindActive", mock.Anything, int64(1), "beto").Return(beto, nil)
	a.messages.On("CountSent", mock.Anything, int64(1), "ana", "beto").Return(2, nil).Once()
	a.messages.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	rec := a.do(t, http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "hola"}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[model.SendMessageResponse](t, rec)
	assert.Equal(t, "hola", resp.Message.Text)
	assert.Equal(t, model.Quota{Used: 3, Remaining: 0}, resp.Quota)

	a.messages.On("CountSent", mock.Anything, int64(1), "ana", "beto").Return(3, nil).Once()
	rec = a.do(t, http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "otra"}, tok)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, model.Quota{Used: 3, Remaining: 0}, decode[model.SendMessageResponse](t, rec).Quota)

	a.messages.AssertNumberOfCalls(t, "Create", 1)
}

func TestSendMessage_RecipientGone(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	a.checkins.On("FindActive", mock.Anything, int64(1), "beto").Return(nil, repository.ErrNotFound).Once()

	rec := a.do(t, http.MethodPost, "/messages", model.SendMessageRequest{ToNickname: "beto", Text: "hola"}, a.token(t, ana))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConversationAndInbox(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	tok := a.token(t, ana)
	msgs := []model.Message{{VenueID: 1, FromNickname: "beto", ToNickname: "ana", Text: "hola"}}

	a.messages.On("ListConversation", mock.Anything, int64(1), "beto", "ana", service.ConversationLimit).Return(msgs, nil).Once()
	a.messages.On("MarkRead", mock.Anything, int64(1), "beto", "ana").Return(1, nil).Once()
	rec := a.do(t, http.MethodGet, "/conversations/beto", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Message](t, rec), 1)

	a.messages.On("ListInbox", mock.Anything, int64(1), "ana", service.InboxLimit).Return(nil, nil).Once()
	rec = a.do(t, http.MethodGet, "/inbox", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckout(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	tok := a.token(t, ana)

	a.checkins.On("CheckoutByNickname", mock.Anything, int64(1), "ana").Return(repository.CheckoutTooEarly, nil).Once()
	a.settings.On("Get", mock.Anything).Return(model.AppSetting{MinStayMinutes: 30}, nil).Once()
	rec := a.do(t, http.MethodPost, "/checkout", nil, tok)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 30, decode[model.ErrorResponse](t, rec).MinStayMinutes)

	a.checkins.On("CheckoutByNickname", mock.Anything, int64(1), "ana").Return(repository.CheckoutOK, nil).Once()
	rec = a.do(t, http.MethodPost, "/checkout", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CheckoutCompleted, decode[model.CheckoutOutcome](t, rec).Status)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	a.checkins.On("ListActive", mock.Anything, int64(1)).Return(nil, assert.AnError).Once()

	rec := a.do(t, http.MethodGet, "/matches", nil, a.token(t, ana))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to list matches", decode[model.ErrorResponse](t, rec).Error)
}

func TestStream(t *testing.T) {
	a := newTestAPI(t)
	a.present(ana)
	srv := httptest.NewServer(a.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+"bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+a.token(t, ana), nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered before the upgrade completes.
	ctx := context.Background()
	require.NoError(t, a.broker.Publish(ctx, realtime.MessageEvent(model.Message{
		VenueID: 1, FromNickname: "beto", ToNickname: "ana", Text: "hola",
	})))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.MessageInsert, ev.Kind)
	assert.Equal(t, "hola", ev.Message.Text)

	// Another checkout at the venue keeps the stream open; our own ends it.
	require.NoError(t, a.broker.Publish(ctx, realtime.CheckinEvent(realtime.CheckinUpdate, 1, "beto")))
	require.NoError(t, a.broker.Publish(ctx, realtime.CheckinEvent(realtime.CheckinUpdate, 1, "ana")))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "beto", ev.Nickname)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "ana", ev.Nickname)
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStream_StaleToken(t *testing.T) {
	a := newTestAPI(t)
	a.checkins.On("FindActive", mock.Anything, int64(1), "ana").Return(nil, repository.ErrNotFound)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + a.token(t, ana)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParse_RejectsUnknownGender(t *testing.T) {
	a := newTestAPI(t)
	bad := ana
	bad.Gender = "robot"
	tok := a.token(t, bad)

	_, err := a.tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
