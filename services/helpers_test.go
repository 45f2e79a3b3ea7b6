package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoExtension(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        string
		wantErr     bool
	}{
		{contentType: "image/png", filename: "crest.PNG", want: ".png"},
		{contentType: "image/jpeg", filename: "crest", want: ".jpg"},
		{contentType: "image/svg+xml; charset=utf-8", filename: "crest.svg", want: ".svg"},
		{contentType: "image/avif", filename: "Crest.AVIF", want: ".avif"},
		{contentType: "image/x-icon", filename: "", want: ".x-icon"},
		{contentType: "text/plain", filename: "crest.png", wantErr: true},
		{contentType: "", filename: "crest.png", wantErr: true},
		{contentType: "image/", filename: "crest.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := logoExtension(tt.contentType, tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLogo)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
