package checksum

import (
	"testing"

	"github.com/starford/idlepick/internal/models"
)

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestEntriesOrderSensitive(t *testing.T) {
	a := []models.Entry{{ID: 10, Name: "Counter-Strike"}, {ID: 20, Name: "Team Fortress Classic"}}
	b := []models.Entry{a[1], a[0]}
	if Entries(a) == Entries(b) {
		t.Error("digest should depend on order")
	}
	if Entries(a) != Entries([]models.Entry{a[0], a[1]}) {
		t.Error("digest should be deterministic")
	}
	if Entries(nil) != Sum(nil) {
		t.Error("empty catalog should digest like empty input")
	}
}

func TestEntriesFieldBoundaries(t *testing.T) {
	x := []models.Entry{{ID: 1, Name: "2"}}
	y := []models.Entry{{ID: 12, Name: ""}}
	if Entries(x) == Entries(y) {
		t.Error("id and name must be delimited")
	}
}
