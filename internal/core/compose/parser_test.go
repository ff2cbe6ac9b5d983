package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

const minimalDoc = `
services:
  app:
    image: nginx:latest
`

const multiServiceDoc = `
services:
  web:
    image: app:1.0
    ports:
      - "80:80"
    depends_on:
      - db

  db:
    image: db:9
    volumes:
      - pgdata:/var/lib/postgresql/data

volumes:
  pgdata:
`

const sharedImageDoc = `
services:
  worker-a:
    image: worker:2.1
  worker-b:
    image: worker:2.1
  cache:
    image: redis:7
`

const circularDoc = `
services:
  a:
    image: a:1
    depends_on:
      - b
  b:
    image: b:1
    depends_on:
      - a
`

// =============================================================================
// Parse Tests
// =============================================================================

func TestParse_MinimalDocument(t *testing.T) {
	doc, err := Parse(minimalDoc)
	require.NoError(t, err)

	require.Len(t, doc.Services, 1)
	assert.Equal(t, "app", doc.Services[0].Name)
	assert.Equal(t, "nginx:latest", doc.Services[0].Image)
}

func TestParse_MultiService(t *testing.T) {
	doc, err := Parse(multiServiceDoc)
	require.NoError(t, err)

	require.Len(t, doc.Services, 2)
	require.Len(t, doc.Volumes, 1)
	assert.Equal(t, "pgdata", doc.Volumes[0].Name)

	var web Service
	for _, svc := range doc.Services {
		if svc.Name == "web" {
			web = svc
		}
	}
	require.Equal(t, "web", web.Name)
	assert.Equal(t, []string{"db"}, web.DependsOn)
	require.Len(t, web.Ports, 1)
	assert.Equal(t, uint32(80), web.Ports[0].Target)
	assert.Equal(t, uint32(80), web.Ports[0].Published)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Parse("   \n\t  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("services: [[[")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_NoServices(t *testing.T) {
	_, err := Parse("volumes:\n  data:\n")
	assert.Error(t, err)
}

func TestParse_CircularDependency(t *testing.T) {
	_, err := Parse(circularDoc)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestParse_VolumeMountTypes(t *testing.T) {
	doc, err := Parse(`
services:
  app:
    image: app:1
    volumes:
      - data:/var/data
      - /host/config:/etc/config:ro
volumes:
  data:
`)
	require.NoError(t, err)

	require.Len(t, doc.Services, 1)
	mounts := doc.Services[0].Volumes
	require.Len(t, mounts, 2)

	byTarget := make(map[string]VolumeMount)
	for _, m := range mounts {
		byTarget[m.Target] = m
	}

	assert.Equal(t, VolumeMountTypeVolume, byTarget["/var/data"].Type)
	assert.Equal(t, "data", byTarget["/var/data"].Source)

	assert.Equal(t, VolumeMountTypeBind, byTarget["/etc/config"].Type)
	assert.Equal(t, "/host/config", byTarget["/etc/config"].Source)
	assert.True(t, byTarget["/etc/config"].ReadOnly)
}

func TestParse_Environment(t *testing.T) {
	doc, err := Parse(`
services:
  app:
    image: app:1
    environment:
      DB_HOST: db
      DB_PORT: "5432"
`)
	require.NoError(t, err)

	env := doc.Services[0].Environment
	assert.Equal(t, "db", env["DB_HOST"])
	assert.Equal(t, "5432", env["DB_PORT"])
}

// =============================================================================
// Images Tests
// =============================================================================

func TestDocument_Images(t *testing.T) {
	doc, err := Parse(multiServiceDoc)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"app:1.0", "db:9"}, doc.Images())
}

func TestDocument_Images_Deduplicated(t *testing.T) {
	doc, err := Parse(sharedImageDoc)
	require.NoError(t, err)

	images := doc.Images()
	assert.Len(t, images, 2)
	assert.ElementsMatch(t, []string{"worker:2.1", "redis:7"}, images)
}

// =============================================================================
// Ordering Tests
// =============================================================================

func TestSortByDependencies(t *testing.T) {
	services := []Service{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	ordered := SortByDependencies(services)
	require.Len(t, ordered, 3)

	position := make(map[string]int)
	for i, svc := range ordered {
		position[svc.Name] = i
	}

	assert.Less(t, position["db"], position["api"])
	assert.Less(t, position["api"], position["web"])
}

func TestSortByDependencies_NoDependencies(t *testing.T) {
	services := []Service{
		{Name: "a"},
		{Name: "b"},
		{Name: "c"},
	}

	ordered := SortByDependencies(services)
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].Name)
	assert.Equal(t, "b", ordered[1].Name)
	assert.Equal(t, "c", ordered[2].Name)
}

func TestSortByDependencies_DanglingDependency(t *testing.T) {
	services := []Service{
		{Name: "web", DependsOn: []string{"ghost"}},
	}

	ordered := SortByDependencies(services)
	require.Len(t, ordered, 1)
	assert.Equal(t, "web", ordered[0].Name)
}
