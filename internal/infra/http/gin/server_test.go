package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"tumbi/internal/app/dto"
	authsvc "tumbi/internal/app/services/auth"
	"tumbi/internal/app/wiring"
	domainauth "tumbi/internal/domain/auth"
	domainuser "tumbi/internal/domain/user"
	"tumbi/internal/infra/obs"
	"tumbi/internal/infra/security"
	"tumbi/internal/infra/storage/memory"
)

const testSecret = "test-secret"

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) Upload(_ context.Context, key string, reader io.Reader, _ string) (string, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://img.tumbi.test/" + key, nil
}

type testAPI struct {
	router   *gin.Engine
	store    *memory.Store
	uploader *fakeUploader
	auth     *authsvc.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	issuer, err := security.NewJWTIssuer(testSecret)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	authService := &authsvc.Service{
		Users:     store.Users(),
		Passwords: security.BcryptHasher{Cost: 4},
		Tokens:    issuer,
	}
	uploader := &fakeUploader{}
	buses := wiring.Build(wiring.Deps{UoW: memory.Factory{Store: store}, Uploader: uploader})
	router := NewRouter("test", obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth:          AuthHandler{Service: authService},
		Listings:      ListingHandler{Commands: buses.Commands, Queries: buses.Queries, DefaultLimit: 12},
		Users:         UserHandler{Commands: buses.Commands, Queries: buses.Queries},
		Saved:         SavedHandler{Commands: buses.Commands, Queries: buses.Queries},
		Chat:          ChatHandler{Commands: buses.Commands, Queries: buses.Queries},
		Upload:        UploadHandler{Commands: buses.Commands, MaxBytes: 1 << 20},
		Authenticator: &AuthMiddleware{Resolver: authService},
	})
	return &testAPI{router: router, store: store, uploader: uploader, auth: authService}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, name, email string) dto.AuthResult {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "location": "Nairobi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var out dto.AuthResult
	decode(t, rec, &out)
	return out
}

func (a *testAPI) createListing(t *testing.T, token string, input dto.ListingInput) dto.ListingCreated {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/listings", token, input)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: status %d body %s", rec.Code, rec.Body.String())
	}
	var out dto.ListingCreated
	decode(t, rec, &out)
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

func cementInput(title string, price float64) dto.ListingInput {
	return dto.ListingInput{
		Title:        title,
		Price:        price,
		Unit:         "bag",
		Location:     "Nairobi",
		MainCategory: "Building Materials",
		SubCategory:  "Cement",
		Description:  "Fresh stock",
		ImageURLs:    []string{"https://img.tumbi.test/cement.jpg"},
	}
}

func TestProtectedRoutesAnswerWithTokenErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/saved", "", nil)
	if rec.Code != http.StatusUnauthorized || errorMessage(t, rec) != "no token, authorization denied" {
		t.Fatalf("missing token: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/saved", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized || errorMessage(t, rec) != "token is not valid" {
		t.Fatalf("invalid token: %d %s", rec.Code, rec.Body.String())
	}

	user := api.register(t, "Amina", "amina@example.com")
	issuer, _ := security.NewJWTIssuer(testSecret)
	past := time.Now().Add(-48 * time.Hour)
	expired, err := issuer.Issue(domainauth.Claims{
		UserID:    domainuser.ID(user.User.ID),
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = api.do(t, http.MethodGet, "/api/saved", expired, nil)
	if rec.Code != http.StatusUnauthorized || errorMessage(t, rec) != "token has expired" {
		t.Fatalf("expired token: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	me := httptest.NewRecorder()
	api.router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("bearer token should be accepted, got %d %s", me.Code, me.Body.String())
	}
}

func TestRegisterConflictsAndLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Amina", "amina@example.com")

	rec := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "AMINA@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "amina@example.com", "password": "wrong-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
	rec = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "amina@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateListingWithoutImagesIsRejectedBeforePersistence(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")

	input := cementInput("Portland cement", 750)
	input.ImageURLs = []string{}
	rec := api.do(t, http.MethodPost, "/api/listings", seller.Token, input)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	if msg := errorMessage(t, rec); msg != "at least one image url is required" {
		t.Fatalf("unexpected message %q", msg)
	}

	feed := api.do(t, http.MethodGet, "/api/listings", "", nil)
	if strings.TrimSpace(feed.Body.String()) != "[]" {
		t.Fatalf("nothing should be stored, feed is %s", feed.Body.String())
	}
}

func TestListingLifecycle(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	other := api.register(t, "Chege", "chege@example.com")

	created := api.createListing(t, seller.Token, cementInput("Portland Cement 50kg", 750))
	if created.ID == "" || !strings.HasPrefix(created.Slug, "portland-cement-50kg-") {
		t.Fatalf("unexpected create result %+v", created)
	}

	rec := api.do(t, http.MethodGet, "/api/listings/"+created.ID, "", nil)
	var detail dto.Listing
	decode(t, rec, &detail)
	if detail.Views != 1 || detail.Seller == nil || detail.Seller.Name != "Baraka" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	rec = api.do(t, http.MethodGet, "/api/listings/slug/"+created.Slug, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slug lookup: %d", rec.Code)
	}

	update := cementInput("Portland Cement 50kg (bulk)", 700)
	if rec := api.do(t, http.MethodPut, "/api/listings/"+created.ID, other.Token, update); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner update should be 404, got %d", rec.Code)
	}
	rec = api.do(t, http.MethodPut, "/api/listings/"+created.ID, seller.Token, update)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &detail)
	if detail.Price != 700 || detail.Slug != created.Slug {
		t.Fatalf("update should change price and keep slug: %+v", detail)
	}

	if rec := api.do(t, http.MethodDelete, "/api/listings/"+created.ID, other.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner delete should be 404, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/api/listings/"+created.ID, seller.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete: %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/api/listings/"+created.ID, seller.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete should be 404, got %d", rec.Code)
	}
}

func TestCreateListingReplaysIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")

	post := func() dto.ListingCreated {
		raw, _ := json.Marshal(cementInput("Portland Cement 50kg", 750))
		req := httptest.NewRequest(http.MethodPost, "/api/listings", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(TokenHeader, seller.Token)
		req.Header.Set(IdempotencyKeyHeader, "retry-1")
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
		}
		var out dto.ListingCreated
		decode(t, rec, &out)
		return out
	}
	first, second := post(), post()
	if first != second {
		t.Fatalf("retry created a second listing: %+v vs %+v", first, second)
	}
	rec := api.do(t, http.MethodGet, "/api/users/"+seller.User.ID+"/listings", "", nil)
	var listings []dto.Listing
	decode(t, rec, &listings)
	if len(listings) != 1 {
		t.Fatalf("expected one listing, got %d", len(listings))
	}
}

func TestOversizedIdempotencyKeyIsRejected(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")

	raw, _ := json.Marshal(cementInput("Portland Cement 50kg", 750))
	req := httptest.NewRequest(http.MethodPost, "/api/listings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, seller.Token)
	req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", 129))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decode(t, rec, &body)
	if !strings.Contains(body["error"], "Idempotency-Key") {
		t.Fatalf("error should name the header, got %q", body["error"])
	}

	rec = api.do(t, http.MethodGet, "/api/users/"+seller.User.ID+"/listings", "", nil)
	var listings []dto.Listing
	decode(t, rec, &listings)
	if len(listings) != 0 {
		t.Fatalf("rejected request created %d listings", len(listings))
	}
}

func TestAdminDeletesAnyListing(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	created := api.createListing(t, seller.Token, cementInput("Portland cement", 750))

	hash, _ := security.BcryptHasher{Cost: 4}.Hash("admin-pass")
	admin, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "admin-1", Name: "Ops", Email: "ops@tumbi.test", PasswordHash: hash, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("new admin: %v", err)
	}
	admin.Admin = true
	if err := api.store.Users().Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	login, err := api.auth.Login(context.Background(), authsvc.LoginParams{Identifier: "ops@tumbi.test", Password: "admin-pass"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if rec := api.do(t, http.MethodDelete, "/api/listings/"+created.ID, login.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestFeedPagingFiltersAndSort(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	for i := 0; i < 17; i++ {
		api.createListing(t, seller.Token, cementInput(fmt.Sprintf("Cement lot %02d", i), float64(500+i)))
	}
	other := cementInput("Steel bars", 1200)
	other.MainCategory = "Metals"
	other.Location = "Mombasa"
	api.createListing(t, seller.Token, other)

	page := func(query string) []dto.Listing {
		rec := api.do(t, http.MethodGet, "/api/listings?"+query, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("feed %s: %d", query, rec.Code)
		}
		var items []dto.Listing
		decode(t, rec, &items)
		return items
	}

	if got := page("search=CEMENT&limit=12&offset=0"); len(got) != 12 {
		t.Fatalf("first cement page should be full, got %d", len(got))
	}
	if got := page("search=cement&limit=12&offset=12"); len(got) != 5 {
		t.Fatalf("second cement page should hold 5, got %d", len(got))
	}
	if got := page("city=All%20Cities&mainCategory=All&limit=60"); len(got) != 18 {
		t.Fatalf("'all' filters should not constrain, got %d", len(got))
	}
	if got := page("city=mombasa"); len(got) != 1 || got[0].Title != "Steel bars" {
		t.Fatalf("city filter: %+v", got)
	}
	asc := page("sortBy=price-asc&limit=3")
	if len(asc) != 3 || asc[0].Price != 500 || asc[2].Price != 502 {
		t.Fatalf("price-asc order: %+v", asc)
	}
	if got := page("search=nothing-matches"); got == nil || len(got) != 0 {
		t.Fatalf("empty page should decode as empty array, got %+v", got)
	}
}

func TestSavedTogglesAreIdempotent(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	buyer := api.register(t, "Chege", "chege@example.com")
	created := api.createListing(t, seller.Token, cementInput("Portland cement", 750))

	for i := 0; i < 2; i++ {
		if rec := api.do(t, http.MethodPost, "/api/saved/"+created.ID, buyer.Token, nil); rec.Code != http.StatusOK {
			t.Fatalf("save #%d: %d %s", i, rec.Code, rec.Body.String())
		}
	}
	var ids []string
	decode(t, api.do(t, http.MethodGet, "/api/saved/ids", buyer.Token, nil), &ids)
	if len(ids) != 1 || ids[0] != created.ID {
		t.Fatalf("unexpected saved ids %v", ids)
	}
	var listings []dto.Listing
	decode(t, api.do(t, http.MethodGet, "/api/saved", buyer.Token, nil), &listings)
	if len(listings) != 1 || listings[0].ID != created.ID {
		t.Fatalf("unexpected saved listings %+v", listings)
	}

	for i := 0; i < 2; i++ {
		if rec := api.do(t, http.MethodDelete, "/api/saved/"+created.ID, buyer.Token, nil); rec.Code != http.StatusOK {
			t.Fatalf("unsave #%d: %d", i, rec.Code)
		}
	}
	var status dto.SavedStatus
	decode(t, api.do(t, http.MethodGet, "/api/saved/"+created.ID, buyer.Token, nil), &status)
	if status.Saved {
		t.Fatalf("listing should no longer be saved")
	}

	if rec := api.do(t, http.MethodPost, "/api/saved/missing-listing", buyer.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("saving a missing listing should be 404, got %d", rec.Code)
	}
}

func TestConversationFlow(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	buyer := api.register(t, "Chege", "chege@example.com")
	stranger := api.register(t, "Dalia", "dalia@example.com")
	created := api.createListing(t, seller.Token, cementInput("Portland cement", 750))

	rec := api.do(t, http.MethodPost, "/api/conversations", seller.Token, map[string]string{"listingId": created.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("seller messaging own listing should be 400, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/api/conversations", buyer.Token, map[string]string{"listingId": created.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var conv dto.Conversation
	decode(t, rec, &conv)

	var again dto.Conversation
	decode(t, api.do(t, http.MethodPost, "/api/conversations", buyer.Token, map[string]string{"listingId": created.ID}), &again)
	if again.ID != conv.ID {
		t.Fatalf("get-or-create should return the same conversation")
	}

	for _, content := range []string{"Is it available?", "Yes, 40 bags"} {
		token := buyer.Token
		if strings.HasPrefix(content, "Yes") {
			token = seller.Token
		}
		rec = api.do(t, http.MethodPost, "/api/messages", token, map[string]string{"conversationId": conv.ID, "content": content})
		if rec.Code != http.StatusCreated {
			t.Fatalf("send %q: %d %s", content, rec.Code, rec.Body.String())
		}
	}
	if rec := api.do(t, http.MethodPost, "/api/messages", buyer.Token, map[string]string{"conversationId": conv.ID, "content": "   "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message should be 400, got %d", rec.Code)
	}

	var transcript []dto.Message
	decode(t, api.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", seller.Token, nil), &transcript)
	if len(transcript) != 2 || transcript[0].Content != "Is it available?" || transcript[1].ReceiverID != buyer.User.ID {
		t.Fatalf("unexpected transcript %+v", transcript)
	}

	if rec := api.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", stranger.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-participant should be 403, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/messages", stranger.Token, map[string]string{"conversationId": conv.ID, "content": "hi"}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-participant send should be 403, got %d", rec.Code)
	}

	var list []dto.Conversation
	decode(t, api.do(t, http.MethodGet, "/api/conversations", seller.Token, nil), &list)
	if len(list) != 1 || list[0].LastMessage == nil || list[0].LastMessage.Content != "Yes, 40 bags" {
		t.Fatalf("unexpected conversation list %+v", list)
	}
}

func TestProfileEditAndVendorPages(t *testing.T) {
	api := newTestAPI(t)
	seller := api.register(t, "Baraka", "baraka@example.com")
	api.createListing(t, seller.Token, cementInput("Portland cement", 750))

	rec := api.do(t, http.MethodPut, "/api/users/me", seller.Token, map[string]string{"companyName": "Baraka Hardware"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: %d %s", rec.Code, rec.Body.String())
	}
	var profile dto.PublicProfile
	decode(t, api.do(t, http.MethodGet, "/api/users/"+seller.User.ID, "", nil), &profile)
	if profile.CompanyName != "Baraka Hardware" || profile.Name != "Baraka" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	var listings []dto.Listing
	decode(t, api.do(t, http.MethodGet, "/api/users/"+seller.User.ID+"/listings", "", nil), &listings)
	if len(listings) != 1 {
		t.Fatalf("expected one vendor listing, got %d", len(listings))
	}
	if rec := api.do(t, http.MethodGet, "/api/users/nobody", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown vendor should be 404, got %d", rec.Code)
	}
}

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadImages(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "Baraka", "baraka@example.com")

	upload := func(files map[string][]byte) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, files)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(TokenHeader, user.Token)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	if rec := upload(map[string][]byte{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty upload should be 400, got %d", rec.Code)
	}
	if rec := upload(map[string][]byte{"notes.txt": []byte("plain text, not an image")}); rec.Code != http.StatusBadRequest {
		t.Fatalf("text upload should be 400, got %d", rec.Code)
	}

	rec := upload(map[string][]byte{"bag.png": pngHeader})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var out dto.UploadResult
	decode(t, rec, &out)
	if len(out.URLs) != 1 || !strings.HasSuffix(out.URLs[0], ".png") {
		t.Fatalf("unexpected urls %v", out.URLs)
	}
	if len(api.uploader.keys) != 1 || !strings.HasPrefix(api.uploader.keys[0], "listings/"+user.User.ID+"/") {
		t.Fatalf("unexpected object keys %v", api.uploader.keys)
	}
}

func TestDocsAreServedUnderAPIBase(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/swagger/doc.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("doc.json: %d", rec.Code)
	}
	var doc map[string]any
	decode(t, rec, &doc)
	if _, ok := doc["paths"].(map[string]any)["/listings"]; !ok {
		t.Fatalf("openapi document should describe /listings")
	}

	rec = api.do(t, http.MethodGet, "/api/swagger", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("swagger ui: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `url: "/api/swagger/doc.json"`) {
		t.Fatalf("swagger ui should load the document from the api base")
	}
}
