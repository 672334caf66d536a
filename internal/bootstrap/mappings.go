package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/bridgeconf"
)

const (
	mappingSeparatorConstant              = ":"
	mappingFormatMessageConstant          = "mapping must use the path:branch format"
	mappingsFileEmptyMessageConstant      = "mappings file declares no mappings"
	mappingFormatDetailTemplateConstant   = "%w: %q"
	mappingsFileReadFailureTemplateConst  = "failed to read mappings file %s: %w"
	mappingsFileParseFailureTemplateConst = "failed to parse mappings file %s: %w"
)

// ErrInvalidMappingFormat indicates a mapping argument not shaped path:branch.
var ErrInvalidMappingFormat = errors.New(mappingFormatMessageConstant)

// ErrMappingsFileEmpty indicates a mappings file without any mapping entries.
var ErrMappingsFileEmpty = errors.New(mappingsFileEmptyMessageConstant)

// MappingsFile mirrors the YAML schema accepted by init --mappings-file.
type MappingsFile struct {
	URL      string `yaml:"url"`
	Mappings []struct {
		Path   string `yaml:"path"`
		Branch string `yaml:"branch"`
	} `yaml:"mappings"`
}

// ParseMappingArguments converts path:branch command arguments into fetch mappings.
func ParseMappingArguments(arguments []string) ([]bridgeconf.FetchMapping, error) {
	mappings := make([]bridgeconf.FetchMapping, 0, len(arguments))
	for _, argument := range arguments {
		components := strings.Split(strings.TrimSpace(argument), mappingSeparatorConstant)
		if len(components) != 2 || len(components[0]) == 0 || len(components[1]) == 0 {
			return nil, fmt.Errorf(mappingFormatDetailTemplateConstant, ErrInvalidMappingFormat, argument)
		}
		mappings = append(mappings, bridgeconf.FetchMapping{SVNPath: components[0], BranchRef: components[1]})
	}
	return mappings, nil
}

// LoadMappingsFile reads a YAML mappings file and returns its URL and mappings.
func LoadMappingsFile(fileSystem bridge.FileSystem, filePath string) (string, []bridgeconf.FetchMapping, error) {
	fileContents, readError := fileSystem.ReadFile(filePath)
	if readError != nil {
		return "", nil, fmt.Errorf(mappingsFileReadFailureTemplateConst, filePath, readError)
	}

	var parsedFile MappingsFile
	if unmarshalError := yaml.Unmarshal(fileContents, &parsedFile); unmarshalError != nil {
		return "", nil, fmt.Errorf(mappingsFileParseFailureTemplateConst, filePath, unmarshalError)
	}
	if len(parsedFile.Mappings) == 0 {
		return "", nil, ErrMappingsFileEmpty
	}

	mappings := make([]bridgeconf.FetchMapping, 0, len(parsedFile.Mappings))
	for _, entry := range parsedFile.Mappings {
		trimmedPath := strings.TrimSpace(entry.Path)
		trimmedBranch := strings.TrimSpace(entry.Branch)
		if len(trimmedPath) == 0 || len(trimmedBranch) == 0 {
			return "", nil, fmt.Errorf(mappingFormatDetailTemplateConstant, ErrInvalidMappingFormat, entry.Path+mappingSeparatorConstant+entry.Branch)
		}
		mappings = append(mappings, bridgeconf.FetchMapping{SVNPath: trimmedPath, BranchRef: trimmedBranch})
	}
	return strings.TrimSpace(parsedFile.URL), mappings, nil
}
