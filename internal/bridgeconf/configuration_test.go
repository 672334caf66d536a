package bridgeconf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ggitproject/ggit/internal/bridgeconf"
)

const (
	testRemoteNameConstant  = "svn"
	testRemoteURLConstant   = "file:///srv/svn"
	testTrunkPathConstant   = "trunk/rtos"
	testTrunkBranchConstant = "trunk"
	testAPPathConstant      = "branches/ap/trunk/rtos"
	testAPBranchConstant    = "aptrunk"
)

func sampleConfiguration() bridgeconf.Configuration {
	return bridgeconf.Configuration{
		Remotes: []bridgeconf.Remote{
			{
				Name: testRemoteNameConstant,
				URL:  testRemoteURLConstant,
				FetchMappings: []bridgeconf.FetchMapping{
					{SVNPath: testTrunkPathConstant, BranchRef: testTrunkBranchConstant},
					{SVNPath: testAPPathConstant, BranchRef: testAPBranchConstant},
				},
			},
		},
	}
}

func TestSerializeParseRoundTrip(testInstance *testing.T) {
	original := sampleConfiguration()

	parsed, parseError := bridgeconf.Parse(bridgeconf.Serialize(original))
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, original, parsed)
}

func TestParseIgnoresUnrelatedSections(testInstance *testing.T) {
	configurationText := "[core]\n\tbare = false\n" +
		"[svn-remote \"svn\"]\n\turl = file:///srv/svn\n\tfetch = trunk/rtos:trunk\n" +
		"[branch \"main\"]\n\tremote = origin\n"

	parsed, parseError := bridgeconf.Parse(configurationText)
	require.NoError(testInstance, parseError)
	require.Len(testInstance, parsed.Remotes, 1)
	require.Equal(testInstance, testRemoteNameConstant, parsed.Remotes[0].Name)
	require.Len(testInstance, bridgeconf.RemoteSections(parsed), 1)
}

func TestParseRejectsMalformedConfigurations(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configurationText string
	}{
		{
			name:              "missing_url",
			configurationText: "[svn-remote \"svn\"]\n\tfetch = trunk/rtos:trunk\n",
		},
		{
			name:              "duplicate_url",
			configurationText: "[svn-remote \"svn\"]\n\turl = file:///a\n\turl = file:///b\n\tfetch = trunk:trunk\n",
		},
		{
			name:              "empty_url",
			configurationText: "[svn-remote \"svn\"]\n\turl = \n",
		},
		{
			name:              "fetch_without_separator",
			configurationText: "[svn-remote \"svn\"]\n\turl = file:///srv/svn\n\tfetch = trunkrtos\n",
		},
		{
			name:              "fetch_with_two_separators",
			configurationText: "[svn-remote \"svn\"]\n\turl = file:///srv/svn\n\tfetch = trunk:rtos:extra\n",
		},
		{
			name:              "duplicate_remote_name",
			configurationText: "[svn-remote \"svn\"]\n\turl = file:///a\n[svn-remote \"svn\"]\n\turl = file:///b\n",
		},
		{
			name:              "duplicate_branch_ref",
			configurationText: "[svn-remote \"svn\"]\n\turl = file:///a\n\tfetch = one:trunk\n\tfetch = two:trunk\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := bridgeconf.Parse(testCase.configurationText)
			require.Error(testInstance, parseError)
			require.ErrorIs(testInstance, parseError, bridgeconf.ErrMalformedConfiguration)
		})
	}
}

func TestMappingLookups(testInstance *testing.T) {
	configuration := sampleConfiguration()

	_, _, missingFound := configuration.MappingForBranch("unknown")
	require.False(testInstance, missingFound)

	mappedRemote, mapping, mappingFound := configuration.MappingForBranch(testAPBranchConstant)
	require.True(testInstance, mappingFound)
	require.Equal(testInstance, testRemoteNameConstant, mappedRemote.Name)
	require.Equal(testInstance, testRemoteURLConstant, mappedRemote.URL)
	require.Equal(testInstance, testAPPathConstant, mapping.SVNPath)

	branchURL, urlFound := mappedRemote.BranchURL(testAPBranchConstant)
	require.True(testInstance, urlFound)
	require.Equal(testInstance, "file:///srv/svn/branches/ap/trunk/rtos", branchURL)

	_, absentFound := mappedRemote.BranchURL("unknown")
	require.False(testInstance, absentFound)
}
