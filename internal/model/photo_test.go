package model

import (
	"errors"
	"testing"
	"time"

	"glowshot.app/glowshotcore/pkg/apperror"
)

func TestPhotoArchive(t *testing.T) {
	now := time.Date(2026, 2, 16, 0, 5, 0, 0, time.UTC)

	p := Photo{Status: PhotoActive}
	if err := p.Archive(now); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if p.Status != PhotoArchived {
		t.Errorf("status = %q, want archived", p.Status)
	}
	if p.ArchivedAt == nil || !p.ArchivedAt.Equal(now) {
		t.Errorf("ArchivedAt = %v, want %v", p.ArchivedAt, now)
	}

	// Archiving is monotonic: a second attempt fails and changes nothing.
	if err := p.Archive(now.Add(time.Hour)); !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("repeat Archive() error = %v, want ErrPreconditionFailed", err)
	}
	if !p.ArchivedAt.Equal(now) {
		t.Errorf("ArchivedAt moved on failed transition: %v", p.ArchivedAt)
	}

	deleted := Photo{Status: PhotoDeleted}
	if err := deleted.Archive(now); !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Errorf("Archive() on deleted photo error = %v, want ErrPreconditionFailed", err)
	}
}

func TestPhotoSoftDelete(t *testing.T) {
	now := time.Date(2026, 2, 16, 0, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status PhotoStatus
	}{
		{"active photo", PhotoActive},
		{"archived photo", PhotoArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Photo{Status: tt.status}
			if err := p.SoftDelete("moderation", now); err != nil {
				t.Fatalf("SoftDelete() error = %v", err)
			}
			if p.Status != PhotoDeleted {
				t.Errorf("status = %q, want deleted", p.Status)
			}
			if p.DeletedReason == nil || *p.DeletedReason != "moderation" {
				t.Errorf("DeletedReason = %v, want moderation", p.DeletedReason)
			}
		})
	}

	p := Photo{Status: PhotoDeleted}
	if err := p.SoftDelete("again", now); !errors.Is(err, apperror.ErrAlreadyExists) {
		t.Errorf("SoftDelete() on deleted photo error = %v, want ErrAlreadyExists", err)
	}
}
