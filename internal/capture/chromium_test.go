package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/calendar"}
	require.NoError(t, o.normalize())

	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, 30*time.Second, o.Timeout)
}

func TestCalendarPNGRequiresURL(t *testing.T) {
	_, err := CalendarPNG(context.Background(), Options{})
	assert.ErrorContains(t, err, "URL is required")
}
