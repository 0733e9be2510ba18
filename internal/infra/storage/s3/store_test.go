package s3

import "testing"

func TestObjectURLUsesPublicEndpoint(t *testing.T) {
	store, err := NewImageStore(Config{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "https://cdn.tumbi.example/",
		Bucket:         "tumbi-images",
	}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got := store.ObjectURL("/listings/u/a.jpg")
	if got != "https://cdn.tumbi.example/tumbi-images/listings/u/a.jpg" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestNewImageStoreRequiresBucket(t *testing.T) {
	if _, err := NewImageStore(Config{Endpoint: "http://localhost:9000"}, nil); err == nil {
		t.Fatalf("expected bucket error")
	}
}
