package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vegnbio/restobook/internal/domain"
)

func validHours() domain.OpeningHours {
	w := domain.Window{Open: 9 * 3600, Close: 22 * 3600}
	return domain.OpeningHours{MonToThu: w, Friday: w, Saturday: w, Sunday: w}
}

func TestValidateRestaurant(t *testing.T) {
	base := func() *domain.Restaurant {
		return &domain.Restaurant{Name: "Le Jardin", Capacity: 80, Hours: validHours()}
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, validateRestaurant(base()))
	})

	t.Run("missing name", func(t *testing.T) {
		v := base()
		v.Name = ""
		assert.True(t, domain.IsValidation(validateRestaurant(v)))
	})

	t.Run("non-positive capacity", func(t *testing.T) {
		v := base()
		v.Capacity = 0
		assert.True(t, domain.IsValidation(validateRestaurant(v)))
	})

	t.Run("degenerate window", func(t *testing.T) {
		v := base()
		v.Hours.Sunday = domain.Window{Open: 9 * 3600, Close: 9 * 3600}
		assert.True(t, domain.IsValidation(validateRestaurant(v)))
	})

	t.Run("overnight window allowed", func(t *testing.T) {
		v := base()
		v.Hours.Friday = domain.Window{Open: 18 * 3600, Close: 2 * 3600}
		assert.NoError(t, validateRestaurant(v))
	})
}
