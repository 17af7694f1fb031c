package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareWindowStateAt(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	activated := base.Add(30 * time.Second)

	cases := []struct {
		name      string
		activated *time.Time
		now       time.Time
		want      ShareState
	}{
		{
			name: "fresh share inside QR window",
			now:  base.Add(10 * time.Second),
			want: ShareActivatable,
		},
		{
			name: "exactly at QR expiry still activatable",
			now:  base.Add(QRWindow),
			want: ShareActivatable,
		},
		{
			name: "unactivated past QR window",
			now:  base.Add(QRWindow + time.Second),
			want: ShareQRExpired,
		},
		{
			name:      "activated inside download window",
			activated: &activated,
			now:       base.Add(48 * time.Hour),
			want:      ShareActive,
		},
		{
			name:      "activated share ignores QR expiry",
			activated: &activated,
			now:       base.Add(2 * QRWindow),
			want:      ShareActive,
		},
		{
			name:      "activated past download window",
			activated: &activated,
			now:       base.Add(DownloadWindow + time.Minute),
			want:      ShareDownloadExpired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ShareWindow{
				Token:             "tok",
				QRExpiresAt:       base.Add(QRWindow),
				QRActivatedAt:     tc.activated,
				DownloadExpiresAt: base.Add(DownloadWindow),
			}
			assert.Equal(t, tc.want, w.StateAt(tc.now))
		})
	}
}

func TestShareWindowExpiryIsTerminal(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := ShareWindow{
		QRExpiresAt:       base.Add(QRWindow),
		DownloadExpiresAt: base.Add(DownloadWindow),
	}

	// Once the QR window has closed without activation, no later reading
	// revives the token.
	assert.Equal(t, ShareQRExpired, w.StateAt(base.Add(2*time.Minute)))
	assert.Equal(t, ShareQRExpired, w.StateAt(base.Add(24*time.Hour)))
	assert.False(t, w.Usable(base.Add(24*time.Hour)))
}

func TestShareWindowUsable(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	activated := base.Add(5 * time.Second)
	w := ShareWindow{
		QRExpiresAt:       base.Add(QRWindow),
		QRActivatedAt:     &activated,
		DownloadExpiresAt: base.Add(DownloadWindow),
	}

	assert.True(t, w.Usable(base.Add(time.Hour)))
	assert.False(t, w.Usable(base.Add(DownloadWindow+time.Second)))
}
