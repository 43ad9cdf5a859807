package service

import (
	"context"
	"errors"
	"testing"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

func TestCreateTouristIssuesUploadLink(t *testing.T) {
	tourists := newFakeTouristRepo()
	photos := newFakePhotoStore()
	svc := NewTouristService(tourists, newFakeOCRLogRepo(), photos, nil, "https://intake.oceaniatours.example/")

	created, err := svc.Create(context.Background(), &CreateTouristInput{
		TourID:       1,
		TouristName:  "  Zhang Wei ",
		SalesName:    "Alice",
		ContactEmail: "Zhang@Example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Tourist.UploadLink == "" {
		t.Fatal("no upload link issued")
	}
	if created.UploadURL != "https://intake.oceaniatours.example/upload/"+created.Tourist.UploadLink {
		t.Errorf("upload url = %q", created.UploadURL)
	}
	if created.Tourist.TouristName != "Zhang Wei" {
		t.Errorf("name = %q, want trimmed", created.Tourist.TouristName)
	}
	if created.Tourist.ContactEmail != "zhang@example.com" {
		t.Errorf("email = %q, want normalized", created.Tourist.ContactEmail)
	}
	if created.Tourist.UploadStatus != domain.UploadPending {
		t.Errorf("status = %q, want pending", created.Tourist.UploadStatus)
	}
}

func TestCreateTouristValidation(t *testing.T) {
	svc := NewTouristService(newFakeTouristRepo(), newFakeOCRLogRepo(), newFakePhotoStore(), nil, "http://localhost:8080")
	ctx := context.Background()

	if _, err := svc.Create(ctx, &CreateTouristInput{TourID: 1}); !domain.IsValidation(err) {
		t.Errorf("missing name err = %v", err)
	}
	if _, err := svc.Create(ctx, &CreateTouristInput{TouristName: "A"}); !domain.IsValidation(err) {
		t.Errorf("missing tour err = %v", err)
	}
	if _, err := svc.Create(ctx, &CreateTouristInput{TourID: 1, TouristName: "A", ContactEmail: "nope"}); !domain.IsValidation(err) {
		t.Errorf("bad email err = %v", err)
	}
	if _, err := svc.Create(ctx, &CreateTouristInput{TourID: 99, TouristName: "A"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown tour err = %v", err)
	}
}

func TestDeleteTouristRemovesPhoto(t *testing.T) {
	tourists := newFakeTouristRepo()
	tourists.add(&domain.Tourist{ID: 5, TourID: 1, UploadLink: "link-5", PassportPhoto: "/uploads/passport-link-5-1.jpg"})
	photos := newFakePhotoStore()
	photos.stored["passport-link-5-1.jpg"] = true
	svc := NewTouristService(tourists, newFakeOCRLogRepo(), photos, nil, "http://localhost:8080")

	if err := svc.Delete(context.Background(), 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(photos.removed) != 1 {
		t.Errorf("photo removals = %v", photos.removed)
	}
	if err := svc.Delete(context.Background(), 5); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
