package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradepost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, db *gorm.DB, owner *models.User, title, contact string) *models.Post {
	t.Helper()

	post := &models.Post{
		UserID:      owner.ID,
		Title:       title,
		Content:     "some listing content",
		ContactInfo: contact,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestGetPostsStaleTokenBrowsesAsAnonymous(t *testing.T) {
	s, app, db := newTestServer(t)

	owner, _ := seedServerUser(t, s, db, "owner", models.RoleUser)
	post := seedPost(t, db, owner, "Bike for sale", "owner@example.com")

	ghost, ghostToken := seedServerUser(t, s, db, "ghost", models.RoleUser)
	require.NoError(t, db.Unscoped().Delete(&models.User{}, ghost.ID).Error)

	for _, target := range []string{"/api/posts", fmt.Sprintf("/api/posts/%d", post.ID)} {
		resp := doJSON(t, app, http.MethodGet, target, ghostToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, target)
	}

	resp := doJSON(t, app, http.MethodGet, "/api/posts", ghostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, models.HiddenContactInfo, posts[0].(map[string]any)["contact_info"].(string))
}

func TestGetPostsContactGating(t *testing.T) {
	s, app, db := newTestServer(t)

	owner, ownerToken := seedServerUser(t, s, db, "owner", models.RoleUser)
	_, subToken := func() (*models.User, string) {
		u, tok := seedServerUser(t, s, db, "subscriber", models.RoleUser)
		subscribeUser(t, db, u, time.Now().AddDate(0, 1, 0))
		return u, tok
	}()
	seedPost(t, db, owner, "Bike for sale", "owner@example.com / 555-0100")

	contactOf := func(body map[string]any) string {
		posts := body["posts"].([]any)
		require.Len(t, posts, 1)
		return posts[0].(map[string]any)["contact_info"].(string)
	}

	t.Run("anonymous sees marker", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, models.HiddenContactInfo, contactOf(decodeBody(t, resp)))
	})

	t.Run("unsubscribed non-owner sees marker", func(t *testing.T) {
		_, tok := seedServerUser(t, s, db, "bystander", models.RoleUser)
		resp := doJSON(t, app, http.MethodGet, "/api/posts", tok, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, models.HiddenContactInfo, contactOf(decodeBody(t, resp)))
	})

	t.Run("subscriber sees contact info", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts", subToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "owner@example.com / 555-0100", contactOf(decodeBody(t, resp)))
	})

	t.Run("owner sees own contact info", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts", ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "owner@example.com / 555-0100", contactOf(decodeBody(t, resp)))
	})

	t.Run("admin sees contact info", func(t *testing.T) {
		_, adminToken := seedServerUser(t, s, db, "moderator", models.RoleAdmin)
		resp := doJSON(t, app, http.MethodGet, "/api/posts", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "owner@example.com / 555-0100", contactOf(decodeBody(t, resp)))
	})
}

func TestGetPostsExpiredSubscription(t *testing.T) {
	s, app, db := newTestServer(t)

	owner, _ := seedServerUser(t, s, db, "seller", models.RoleUser)
	seedPost(t, db, owner, "Lamp", "seller@example.com")

	lapsed, token := seedServerUser(t, s, db, "lapsed", models.RoleUser)
	subscribeUser(t, db, lapsed, time.Now().AddDate(0, 0, -1))

	// First gated request after expiry is denied and flips the flag.
	resp := doJSON(t, app, http.MethodGet, "/api/posts", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])

	var stored models.User
	require.NoError(t, db.First(&stored, lapsed.ID).Error)
	assert.False(t, stored.IsSubscribed)

	// Afterwards the user is an ordinary unsubscribed viewer.
	resp = doJSON(t, app, http.MethodGet, "/api/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decodeBody(t, resp)["posts"].([]any)
	assert.Equal(t, models.HiddenContactInfo, posts[0].(map[string]any)["contact_info"])
}

func TestGetPost(t *testing.T) {
	s, app, db := newTestServer(t)

	owner, ownerToken := seedServerUser(t, s, db, "detailowner", models.RoleUser)
	post := seedPost(t, db, owner, "Tent", "tent@example.com")

	t.Run("increments views", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored models.Post
		require.NoError(t, db.First(&stored, post.ID).Error)
		assert.Equal(t, int64(2), stored.Views)
	})

	t.Run("missing post", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/99999", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unpublished hidden from public, visible to owner", func(t *testing.T) {
		hidden := seedPost(t, db, owner, "Draft", "x@example.com")
		require.NoError(t, db.Model(hidden).Update("is_published", false).Error)

		resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", hidden.ID), "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", hidden.ID), ownerToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestCreatePost(t *testing.T) {
	s, app, db := newTestServer(t)
	_, token := seedServerUser(t, s, db, "creator", models.RoleUser)

	t.Run("requires auth", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", "", map[string]string{
			"title": "X", "content": "Y",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("creates published listing", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, map[string]string{
			"title":        "Canoe",
			"content":      "Barely used",
			"contact_info": "canoe@example.com",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		created := body["post"].(map[string]any)
		assert.Equal(t, "Canoe", created["title"])
		assert.Equal(t, true, created["is_published"])

		var count int64
		require.NoError(t, db.Model(&models.ActivityLog{}).
			Where("action = ?", models.ActivityCreatePost).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("validates title", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, map[string]string{
			"content": "no title",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("multipart with image", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("title", "Framed print"))
		require.NoError(t, writer.WriteField("content", "Wall art"))
		part, err := writer.CreateFormFile("image", "img.png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes(t))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		created := body["post"].(map[string]any)
		assert.Contains(t, created["image_url"], "/uploads/")
	})
}

func TestUpdateAndDeletePost(t *testing.T) {
	s, app, db := newTestServer(t)

	owner, ownerToken := seedServerUser(t, s, db, "editor", models.RoleUser)
	_, strangerToken := seedServerUser(t, s, db, "stranger", models.RoleUser)
	_, adminToken := seedServerUser(t, s, db, "siteadmin", models.RoleAdmin)
	post := seedPost(t, db, owner, "Desk", "desk@example.com")

	t.Run("stranger cannot update", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), strangerToken,
			map[string]string{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner updates", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), ownerToken,
			map[string]string{"title": "Standing desk"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Standing desk", body["post"].(map[string]any)["title"])
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), strangerToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin deletes", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetMyPosts(t *testing.T) {
	s, app, db := newTestServer(t)

	mine, token := seedServerUser(t, s, db, "mineuser", models.RoleUser)
	other, _ := seedServerUser(t, s, db, "otheruser", models.RoleUser)
	seedPost(t, db, mine, "Mine A", "a@example.com")
	seedPost(t, db, mine, "Mine B", "b@example.com")
	seedPost(t, db, other, "Not mine", "c@example.com")

	resp := doJSON(t, app, http.MethodGet, "/api/posts/user/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	posts := body["posts"].([]any)
	require.Len(t, posts, 2)
	// Own contact info is never redacted on the management surface.
	assert.NotEqual(t, models.HiddenContactInfo, posts[0].(map[string]any)["contact_info"])

	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
}

func TestGetPostsSearchAndPagination(t *testing.T) {
	s, app, db := newTestServer(t)
	owner, _ := seedServerUser(t, s, db, "searchowner", models.RoleUser)
	seedPost(t, db, owner, "Vintage camera", "x@example.com")
	seedPost(t, db, owner, "Mountain bike", "x@example.com")
	seedPost(t, db, owner, "Camera tripod", "x@example.com")

	t.Run("search filters by title", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts?search=camera", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Len(t, body["posts"].([]any), 2)
	})

	t.Run("pagination envelope", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts?page=2&limit=2", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Len(t, body["posts"].([]any), 1)
		pagination := body["pagination"].(map[string]any)
		assert.Equal(t, float64(2), pagination["page"])
		assert.Equal(t, float64(3), pagination["total"])
		assert.Equal(t, float64(2), pagination["pages"])
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
