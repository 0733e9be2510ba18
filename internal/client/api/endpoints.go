package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"tumbi/internal/app/dto"
)

type (
	Listing       = dto.Listing
	ListingInput  = dto.ListingInput
	User          = dto.User
	PublicProfile = dto.PublicProfile
	AuthResult    = dto.AuthResult
	Conversation  = dto.Conversation
	Message       = dto.Message
)

type RegisterInput struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Location    string `json:"location,omitempty"`
	Password    string `json:"password"`
}

// ProfileInput sends only the non-nil fields.
type ProfileInput struct {
	Name        *string `json:"name,omitempty"`
	CompanyName *string `json:"companyName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Location    *string `json:"location,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// ListingQuery is one feed request. Zero values are omitted from the URL.
type ListingQuery struct {
	Search       string
	MainCategory string
	SubCategory  string
	City         string
	SortBy       string
	Limit        int
	Offset       int
}

func (q ListingQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("search", q.Search)
	set("mainCategory", q.MainCategory)
	set("subCategory", q.SubCategory)
	set("city", q.City)
	set("sortBy", q.SortBy)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	return v
}

// UploadFile is one image part for UploadImages.
type UploadFile struct {
	Name string
	Data []byte
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &out)
	return out, err
}

// Login accepts an email address or a phone number as identifier.
func (c *Client) Login(ctx context.Context, identifier, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"identifier": identifier, "password": password}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

func (c *Client) ListListings(ctx context.Context, q ListingQuery) ([]Listing, error) {
	var out []Listing
	if err := c.do(ctx, http.MethodGet, "/listings", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetListing(ctx context.Context, id string) (Listing, error) {
	var out Listing
	err := c.do(ctx, http.MethodGet, "/listings/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListingBySlug(ctx context.Context, slug string) (Listing, error) {
	var out Listing
	err := c.do(ctx, http.MethodGet, "/listings/slug/"+url.PathEscape(slug), nil, nil, &out)
	return out, err
}

func (c *Client) CreateListing(ctx context.Context, in ListingInput) (dto.ListingCreated, error) {
	var out dto.ListingCreated
	err := c.do(ctx, http.MethodPost, "/listings", nil, in, &out)
	return out, err
}

func (c *Client) UpdateListing(ctx context.Context, id string, in ListingInput) (Listing, error) {
	var out Listing
	err := c.do(ctx, http.MethodPut, "/listings/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

func (c *Client) DeleteListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/listings/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) VendorProfile(ctx context.Context, id string) (PublicProfile, error) {
	var out PublicProfile
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) VendorListings(ctx context.Context, id string) ([]Listing, error) {
	var out []Listing
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"/listings", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPut, "/users/me", nil, in, &out)
	return out, err
}

func (c *Client) SavedListings(ctx context.Context) ([]Listing, error) {
	var out []Listing
	err := c.do(ctx, http.MethodGet, "/saved", nil, nil, &out)
	return out, err
}

func (c *Client) SavedIDs(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/saved/ids", nil, nil, &out)
	return out, err
}

func (c *Client) IsSaved(ctx context.Context, listingID string) (bool, error) {
	var out dto.SavedStatus
	err := c.do(ctx, http.MethodGet, "/saved/"+url.PathEscape(listingID), nil, nil, &out)
	return out.Saved, err
}

func (c *Client) Save(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodPost, "/saved/"+url.PathEscape(listingID), nil, nil, nil)
}

func (c *Client) Unsave(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodDelete, "/saved/"+url.PathEscape(listingID), nil, nil, nil)
}

func (c *Client) StartConversation(ctx context.Context, listingID string) (Conversation, error) {
	var out Conversation
	err := c.do(ctx, http.MethodPost, "/conversations", nil, map[string]string{"listingId": listingID}, &out)
	return out, err
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &out)
	return out, err
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID)+"/messages", nil, nil, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (Message, error) {
	var out Message
	err := c.do(ctx, http.MethodPost, "/messages", nil, map[string]string{"conversationId": conversationID, "content": content}, &out)
	return out, err
}

func (c *Client) UploadImages(ctx context.Context, files []UploadFile) ([]string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var out dto.UploadResult
	if err := c.send(req, &out); err != nil {
		return nil, fmt.Errorf("upload images: %w", err)
	}
	return out.URLs, nil
}
