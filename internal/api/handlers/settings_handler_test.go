package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailsync/pkg/models"
)

func TestSettingsHandler_List_UsesQueryCategory(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("List", mock.Anything, "imap").Return([]models.Setting{
		{ID: 1, Key: "imap_host", Value: "imap.example.com", Category: models.CategoryIMAP},
	})

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodGet, "/api/settings?category=imap", "")
	require.NoError(t, handler.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"id":1,"key":"imap_host","value":"imap.example.com","category":"imap","is_encrypted":false}]}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestSettingsHandler_List_PathWinsOverQuery(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("List", mock.Anything, "intercom").Return([]models.Setting{})

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodGet, "/api/settings/intercom?category=imap", "", "category", "intercom")
	require.NoError(t, handler.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestSettingsHandler_Save_CategoryFromBody(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("CreateOrUpdate", mock.Anything, models.SettingInput{
		ID:          3,
		Key:         "intercom_token",
		Value:       "tok",
		Category:    "intercom",
		IsEncrypted: true,
	}).Return(true)

	handler := NewSettingsHandler(store)
	body := `{"id":3,"key":"intercom_token","value":"tok","category":"intercom","is_encrypted":true}`
	c, rec := newContext(http.MethodPost, "/api/settings", body)
	require.NoError(t, handler.Save(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestSettingsHandler_Save_PathCategoryWins(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("CreateOrUpdate", mock.Anything, mock.MatchedBy(func(in models.SettingInput) bool {
		return in.Category == "imap" && in.Key == "imap_port" && in.Value == "993"
	})).Return(true)

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodPost, "/api/settings/imap", `{"key":"imap_port","value":993,"category":"general"}`, "category", "imap")
	require.NoError(t, handler.Save(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestSettingsHandler_Save_RequiresKey(t *testing.T) {
	store := new(MockSettingsStore)

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodPost, "/api/settings", `{"value":"x"}`)
	require.NoError(t, handler.Save(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	store.AssertNotCalled(t, "CreateOrUpdate", mock.Anything, mock.Anything)
}

func TestSettingsHandler_Save_InvalidJSON(t *testing.T) {
	handler := NewSettingsHandler(new(MockSettingsStore))
	c, rec := newContext(http.MethodPost, "/api/settings", `{"key":`)
	require.NoError(t, handler.Save(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandler_Save_WriteFailure(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("CreateOrUpdate", mock.Anything, mock.Anything).Return(false)

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodPost, "/api/settings", `{"key":"k","value":"v"}`)
	require.NoError(t, handler.Save(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"failed to save setting"}`, rec.Body.String())
}

func TestSettingsHandler_Object(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("Object", mock.Anything, "imap").Return(map[string]string{"imap_host": "h", "imap_password": "p"})

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodGet, "/api/settings/imap/object", "", "category", "imap")
	require.NoError(t, handler.Object(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"imap_host":"h","imap_password":"p"}}`, rec.Body.String())
}

func TestSettingsHandler_Bulk(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("SaveObject", mock.Anything, "imap", map[string]string{
		"imap_host":    "imap.example.com",
		"imap_port":    "993",
		"imap_use_ssl": "true",
	}).Return(true)

	handler := NewSettingsHandler(store)
	body := `{"settings":{"imap_host":"imap.example.com","imap_port":993,"imap_use_ssl":true}}`
	c, rec := newContext(http.MethodPost, "/api/settings/imap/bulk", body, "category", "imap")
	require.NoError(t, handler.Bulk(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestSettingsHandler_Bulk_RequiresObject(t *testing.T) {
	handler := NewSettingsHandler(new(MockSettingsStore))
	c, rec := newContext(http.MethodPost, "/api/settings/imap/bulk", `{"settings":[1,2]}`, "category", "imap")
	require.NoError(t, handler.Bulk(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandler_Bulk_WriteFailure(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("SaveObject", mock.Anything, "general", mock.Anything).Return(false)

	handler := NewSettingsHandler(store)
	c, rec := newContext(http.MethodPost, "/api/settings/general/bulk", `{"settings":{}}`, "category", "general")
	require.NoError(t, handler.Bulk(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
