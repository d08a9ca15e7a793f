package db

import (
	"strings"
	"testing"

	"ResourceDirectory/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResources(t *testing.T) {
	input := strings.Join([]string{
		"name\ttags\taddress\tlatitude\tlongitude\tinfo",
		"Food bank\tfood; free\t1 Road\t51.5\t-0.12\tOpen weekdays",
		"Advice line\tlegal\t\t\t\t",
		"Shelter\thousing\t2 Lane\t\t\t",
	}, "\n")

	rows, err := readResources(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0].Resource
	assert.Equal(t, "Food bank", first.Name)
	assert.Equal(t, []string{"food", "free"}, first.Tags)
	require.NotNil(t, first.Location)
	assert.Equal(t, types.GeoPoint{Lat: 51.5, Lon: -0.12}, *first.Location.GeoPoint)
	assert.Equal(t, "Open weekdays", rows[0].Details["info"])

	assert.Nil(t, rows[1].Resource.Location)
	assert.Empty(t, rows[1].Details)

	kind, err := rows[2].Resource.Location.Kind()
	require.NoError(t, err)
	assert.Equal(t, types.LocationAddress, kind)
}

func TestReadResources_BadCoordinates(t *testing.T) {
	input := "name\ttags\taddress\tlatitude\tlongitude\tinfo\nX\t\t\tnorth\t1\t\n"
	_, err := readResources(strings.NewReader(input))
	assert.ErrorContains(t, err, "line 2")
}
