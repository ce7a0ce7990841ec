package httpapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/420btc/KinemaTV/internal/library"
	"github.com/420btc/KinemaTV/internal/testutil"
)

func TestUserRoutes(t *testing.T) {
	f := newFixture(t)

	rr := testutil.PostJSON(t, f.handler, "/api/user", map[string]any{"id": "user_1", "email": "ana@example.com", "displayName": "Ana"})
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.GetJSON(t, f.handler, "/api/user/user_1")
	testutil.AssertStatus(t, rr, http.StatusOK)
	var u library.User
	testutil.DecodeJSON(t, rr, &u)
	assert.Equal(t, "Ana", u.DisplayName)

	rr = testutil.GetJSON(t, f.handler, "/api/user/ghost")
	testutil.AssertError(t, rr, http.StatusNotFound, "User not found")

	rr = testutil.PostJSON(t, f.handler, "/api/user", map[string]any{"email": "ana@example.com"})
	testutil.AssertError(t, rr, http.StatusBadRequest, "id is required")
}

func TestFavoritesRoutes(t *testing.T) {
	f := newFixture(t)
	fav := map[string]any{"userId": "user_1", "mediaId": 27205, "mediaType": "movie", "title": "Inception", "posterPath": "/p.jpg"}

	rr := testutil.GetJSON(t, f.handler, "/api/favorites/user_1")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = testutil.PostJSON(t, f.handler, "/api/favorites", fav)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.PostJSON(t, f.handler, "/api/favorites", fav)
	testutil.AssertError(t, rr, http.StatusConflict, "Media already in favorites")

	rr = testutil.GetJSON(t, f.handler, "/api/favorites/user_1")
	var list []library.Favorite
	testutil.DecodeJSON(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Inception", list[0].Title)

	rr = testutil.Do(t, f.handler, http.MethodDelete, "/api/favorites/user_1/27205", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	rr = testutil.Do(t, f.handler, http.MethodDelete, "/api/favorites/user_1/27205", nil)
	testutil.AssertError(t, rr, http.StatusNotFound, "Media not in favorites")

	rr = testutil.Do(t, f.handler, http.MethodDelete, "/api/favorites/user_1/abc", nil)
	testutil.AssertError(t, rr, http.StatusBadRequest, "Invalid media id")

	rr = testutil.PostJSON(t, f.handler, "/api/favorites", map[string]any{"userId": "user_1", "mediaId": 1, "mediaType": "book", "title": "x"})
	testutil.AssertError(t, rr, http.StatusBadRequest, "mediaType must be one of: movie, tv")
}

func TestWatchlistRoutes_MediaTypeQuery(t *testing.T) {
	f := newFixture(t)
	show := map[string]any{"userId": "user_1", "mediaId": 1396, "mediaType": "tv", "title": "Breaking Bad"}

	rr := testutil.PostJSON(t, f.handler, "/api/watchlist", show)
	testutil.AssertStatus(t, rr, http.StatusOK)
	rr = testutil.PostJSON(t, f.handler, "/api/watchlist", show)
	testutil.AssertError(t, rr, http.StatusConflict, "Media already in watchlist")

	// Without mediaType the delete targets a movie with that id.
	rr = testutil.Do(t, f.handler, http.MethodDelete, "/api/watchlist/user_1/1396", nil)
	testutil.AssertError(t, rr, http.StatusNotFound, "Media not in watchlist")

	rr = testutil.Do(t, f.handler, http.MethodDelete, "/api/watchlist/user_1/1396?mediaType=tv", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.GetJSON(t, f.handler, "/api/watchlist/user_1")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCommentsRoutes(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{"Obra maestra", "La peonza sigue girando"} {
		rr := testutil.PostJSON(t, f.handler, "/api/comments", map[string]any{
			"mediaId": 27205, "mediaType": "movie", "username": "ana", "content": body, "title": "Inception",
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)
	}
	rr := testutil.PostJSON(t, f.handler, "/api/comments", map[string]any{
		"mediaId": 1396, "mediaType": "tv", "username": "luis", "content": "Say my name",
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.GetJSON(t, f.handler, "/api/comments?mediaId=27205&mediaType=movie")
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list []library.Comment
	testutil.DecodeJSON(t, rr, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "La peonza sigue girando", list[0].Content)

	rr = testutil.GetJSON(t, f.handler, "/api/comments?mediaId=27205&mediaType=movie&action=count")
	assert.JSONEq(t, `{"count":2}`, rr.Body.String())

	rr = testutil.GetJSON(t, f.handler, "/api/comments?action=recent&limit=1")
	testutil.DecodeJSON(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Say my name", list[0].Content)

	rr = testutil.GetJSON(t, f.handler, "/api/comments?mediaType=movie")
	testutil.AssertError(t, rr, http.StatusBadRequest, "mediaId is required")

	rr = testutil.GetJSON(t, f.handler, "/api/comments?mediaId=1&action=delete")
	testutil.AssertError(t, rr, http.StatusBadRequest, "Unknown action")
}

func TestCreateComment_ValidationMessages(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		body map[string]any
		msg  string
	}{
		{map[string]any{"mediaId": 1, "mediaType": "movie", "username": "ana", "content": "  "}, "Comment content cannot be empty"},
		{map[string]any{"mediaId": 1, "mediaType": "movie", "username": "", "content": "hola"}, "Username cannot be empty"},
		{map[string]any{"mediaId": 1, "mediaType": "movie", "username": "ana", "content": strings.Repeat("x", 1001)}, "Comment content is too long (max 1000 characters)"},
		{map[string]any{"mediaId": 1, "mediaType": "movie", "username": strings.Repeat("u", 51), "content": "hola"}, "Username is too long (max 50 characters)"},
	}
	for _, tc := range cases {
		rr := testutil.PostJSON(t, f.handler, "/api/comments", tc.body)
		testutil.AssertError(t, rr, http.StatusBadRequest, tc.msg)
	}
}
