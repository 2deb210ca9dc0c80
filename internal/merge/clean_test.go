package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"John Deere 4020 Diesel":       "john deere 4020",
		"Deere 4020":                   "john deere 4020",
		"JD 4440":                      "john deere 4440",
		"Farmall H":                    "case farmall h",
		"Case IH 7140":                 "case 7140",
		"International Harvester 1066": "international 1066",
		"Massey-Ferguson 135":          "massey ferguson 135",
		"Allis-Chalmers WD45":          "allis chalmers wd45",
		"Ford 8N Tractor":              "ford 8n",
		"Kubota L3901 4WD Utility":     "kubota l3901",
		"New Holland TC30 (low hours)": "new holland tc30",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanModelName(in), "input %q", in)
	}
}

func TestCleanModelNameYearHandling(t *testing.T) {
	t.Parallel()

	// Recent machines keep the model year; vintage machines drop it.
	assert.Equal(t, "2019 john deere 5075e", CleanModelName("2019 John Deere 5075E"))
	assert.Equal(t, "john deere 4020", CleanModelName("1968 John Deere 4020"))
}

func TestCleanModelNameMarketAliases(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ford golden jubilee", CleanModelName("Ford Jubilee"))
	assert.Equal(t, "massey harris 44-6", CleanModelName("Massey-Harris 44 Special"))
}

func TestCleanModelNameEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", CleanModelName(""))
	assert.Equal(t, "", CleanModelName("   "))
}

func TestCleanHorsepower(t *testing.T) {
	t.Parallel()

	hp := CleanHorsepower("85 hp (63.4 kW)")
	require.NotNil(t, hp)
	assert.InDelta(t, 85, *hp, 0.01)

	hp = CleanHorsepower("52.5")
	require.NotNil(t, hp)
	assert.InDelta(t, 52.5, *hp, 0.01)

	assert.Nil(t, CleanHorsepower(""))
	assert.Nil(t, CleanHorsepower("n/a"))
}
