package catalog_test

import (
	"testing"

	"github.com/fivetwenty-io/logo-objects/internal/catalog"
	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		logo.EntityCountries, logo.EntityTowns, logo.EntityCities, logo.EntityProjects,
		logo.EntityGroupCodes, logo.EntityFreeZones, logo.EntitySpecialCodes, logo.EntityEmployeeCosts,
		logo.EntitySalesExpenses, logo.EntityUnits, logo.EntityItems, logo.EntityArps,
	}, cat.Entities())

	for _, name := range cat.Entities() {
		entity, err := cat.Entity(name)
		require.NoError(t, err)
		assert.NotEmpty(t, entity.Search, name)
		assert.Equal(t, "code", entity.Search[0].Key, name)
		assert.NotEmpty(t, entity.ActionInfos(), name)
	}

	items, err := cat.Entity(logo.EntityItems)
	require.NoError(t, err)

	action, err := items.Lookup("ApplyCampaign", logo.MethodPost)
	require.NoError(t, err)
	assert.Equal(t, []string{"itemCode", "campaignCode", "amount"}, action.Params)
	assert.Equal(t, catalog.ReturnsParameters, action.Returns)
}

func TestCatalog_Lookup(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	t.Run("unknown entity", func(t *testing.T) {
		t.Parallel()

		_, err := cat.Entity("planets")
		require.ErrorIs(t, err, constants.ErrUnknownEntity)
		assert.True(t, logo.IsInvalidArgument(err))
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()

		countries, err := cat.Entity(logo.EntityCountries)
		require.NoError(t, err)

		_, err = countries.Lookup("ApplyCampaign", logo.MethodPost)
		require.ErrorIs(t, err, constants.ErrUnknownAction)
		assert.True(t, logo.IsInvalidArgument(err))
	})

	t.Run("unsupported method", func(t *testing.T) {
		t.Parallel()

		items, err := cat.Entity(logo.EntityItems)
		require.NoError(t, err)

		_, err = items.Lookup("ApplyCampaign", logo.MethodGet)
		require.ErrorIs(t, err, constants.ErrUnsupportedMethod)
		assert.True(t, logo.IsInvalidArgument(err))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestEntity_Render(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	items, err := cat.Entity(logo.EntityItems)
	require.NoError(t, err)

	getPrice, err := items.Lookup("GetPrice", logo.MethodGet)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   logo.Method
		params   logo.ActionParams
		wantPath string
		wantBody map[string]interface{}
		wantErr  bool
	}{
		{
			name:     "GET templates segments in declared order",
			method:   logo.MethodGet,
			params:   logo.ActionParams{"priceType": 2, "itemCode": "HDD-1"},
			wantPath: "/items/GetPrice/HDD-1/2",
		},
		{
			name:     "GET escapes segments",
			method:   logo.MethodGet,
			params:   logo.ActionParams{"itemCode": "A B?", "priceType": "x#y"},
			wantPath: "/items/GetPrice/A%20B%3F/x%23y",
		},
		{
			name:     "POST sends params as body",
			method:   logo.MethodPost,
			params:   logo.ActionParams{"itemCode": "HDD-1", "priceType": 2},
			wantPath: "/items/GetPrice",
			wantBody: map[string]interface{}{"itemCode": "HDD-1", "priceType": 2},
		},
		{
			name:    "missing param",
			method:  logo.MethodGet,
			params:  logo.ActionParams{"itemCode": "HDD-1"},
			wantErr: true,
		},
		{
			name:    "unknown param",
			method:  logo.MethodPost,
			params:  logo.ActionParams{"itemCode": "HDD-1", "priceType": 1, "extra": true},
			wantErr: true,
		},
		{
			name:    "segment with slash",
			method:  logo.MethodGet,
			params:  logo.ActionParams{"itemCode": "../admin", "priceType": 1},
			wantErr: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			path, body, err := items.Render(getPrice, testCase.method, testCase.params)
			if testCase.wantErr {
				require.Error(t, err)
				assert.True(t, logo.IsInvalidArgument(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.wantPath, path)
			assert.Equal(t, testCase.wantBody, body)
		})
	}
}

func TestEntity_ItemPath(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	arps, err := cat.Entity(logo.EntityArps)
	require.NoError(t, err)

	path, err := arps.ItemPath("42")
	require.NoError(t, err)
	assert.Equal(t, "/Arps/42", path)

	for _, bad := range []string{"", "  ", "a/b", ".."} {
		_, err = arps.ItemPath(bad)
		require.Error(t, err, bad)
		assert.True(t, logo.IsInvalidArgument(err), bad)
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestLoad_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "not yaml",
			yaml:    "entities: [",
			wantErr: constants.ErrCatalogInvalid,
		},
		{
			name:    "empty",
			yaml:    "entities: []",
			wantErr: constants.ErrCatalogInvalid,
		},
		{
			name: "duplicate entity",
			yaml: `
entities:
  - {name: a, path: /a}
  - {name: a, path: /b}
`,
			wantErr: constants.ErrDuplicateEntity,
		},
		{
			name: "bad path",
			yaml: `
entities:
  - {name: a, path: a}
`,
			wantErr: constants.ErrCatalogInvalid,
		},
		{
			name: "unknown action set",
			yaml: `
entities:
  - {name: a, path: /a, actionSets: [missing]}
`,
			wantErr: constants.ErrUnknownActionSet,
		},
		{
			name: "duplicate action",
			yaml: `
actionSets:
  s:
    - {name: Do, methods: [GET]}
entities:
  - name: a
    path: /a
    actionSets: [s]
    actions:
      - {name: Do, methods: [POST]}
`,
			wantErr: constants.ErrDuplicateAction,
		},
		{
			name: "unsupported method",
			yaml: `
entities:
  - name: a
    path: /a
    actions:
      - {name: Do, methods: [DELETE]}
`,
			wantErr: constants.ErrUnsupportedMethod,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := catalog.Load([]byte(testCase.yaml))
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestLoad_MethodsAreNormalized(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Load([]byte(`
entities:
  - name: things
    path: /things
    search:
      - {key: code, field: CODE}
    actions:
      - {name: Touch, methods: [get, post], params: [code]}
`))
	require.NoError(t, err)

	things, err := cat.Entity("things")
	require.NoError(t, err)

	infos := things.ActionInfos()
	require.Len(t, infos, 1)
	assert.Equal(t, []logo.Method{logo.MethodGet, logo.MethodPost}, infos[0].Methods)
	assert.Equal(t, catalog.ReturnsParameters, infos[0].Returns)
}
