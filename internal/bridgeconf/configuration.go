package bridgeconf

import (
	"errors"
	"fmt"
	"strings"
)

const (
	remoteSectionKindConstant                 = "svn-remote"
	urlAttributeNameConstant                  = "url"
	fetchAttributeNameConstant                = "fetch"
	fetchMappingSeparatorConstant             = ":"
	malformedConfigurationMessageConstant     = "malformed bridge configuration"
	fetchMappingFormatDetailTemplateConstant  = "%w: fetch mapping %q must contain exactly one %q separator"
	missingURLDetailTemplateConstant          = "%w: remote %q must declare exactly one url"
	emptyURLDetailTemplateConstant            = "%w: remote %q declares an empty url"
	duplicateRemoteDetailTemplateConstant     = "%w: remote %q declared more than once"
	duplicateBranchRefDetailTemplateConstant  = "%w: branch ref %q mapped more than once in remote %q"
	sectionHeaderTemplateConstant             = "[%s %q]\n"
	attributeLineTemplateConstant             = "\t%s = %s\n"
	fetchMappingValueTemplateConstant         = "%s%s%s"
	commentPrefixHashConstant                 = "#"
	commentPrefixSemicolonConstant            = ";"
	attributeAssignmentSeparatorConstant      = "="
	sectionHeaderOpeningConstant              = "["
	sectionHeaderClosingConstant              = "]"
)

// ErrMalformedConfiguration reports configuration text violating the bridge contract.
var ErrMalformedConfiguration = errors.New(malformedConfigurationMessageConstant)

// FetchMapping pairs a centralized repository path with the branch ref mirroring it.
type FetchMapping struct {
	SVNPath   string
	BranchRef string
}

// Remote describes one centralized repository connection.
type Remote struct {
	Name          string
	URL           string
	FetchMappings []FetchMapping
}

// BranchURL joins the remote base URL with the mapping path for the given branch ref.
func (remote Remote) BranchURL(branchRef string) (string, bool) {
	for _, mapping := range remote.FetchMappings {
		if mapping.BranchRef == branchRef {
			return strings.TrimSuffix(remote.URL, "/") + "/" + strings.Trim(mapping.SVNPath, "/"), true
		}
	}
	return "", false
}

// Configuration maps remote names to remote declarations, preserving declaration order.
type Configuration struct {
	Remotes []Remote
}

// MappingForBranch locates the remote and mapping owning the given branch ref.
func (configuration Configuration) MappingForBranch(branchRef string) (Remote, FetchMapping, bool) {
	for _, remote := range configuration.Remotes {
		for _, mapping := range remote.FetchMappings {
			if mapping.BranchRef == branchRef {
				return remote, mapping, true
			}
		}
	}
	return Remote{}, FetchMapping{}, false
}

// RemoteSections filters the configuration down to recognized remote declarations.
func RemoteSections(configuration Configuration) []Remote {
	return append([]Remote{}, configuration.Remotes...)
}

type parsedSection struct {
	kind       string
	name       string
	urls       []string
	fetchLines []string
}

// Parse interprets configuration text into a Configuration.
func Parse(text string) (Configuration, error) {
	sections := splitSections(text)

	configuration := Configuration{}
	seenRemoteNames := map[string]bool{}
	for _, section := range sections {
		if section.kind != remoteSectionKindConstant {
			continue
		}
		if seenRemoteNames[section.name] {
			return Configuration{}, fmt.Errorf(duplicateRemoteDetailTemplateConstant, ErrMalformedConfiguration, section.name)
		}
		seenRemoteNames[section.name] = true

		if len(section.urls) != 1 {
			return Configuration{}, fmt.Errorf(missingURLDetailTemplateConstant, ErrMalformedConfiguration, section.name)
		}
		remoteURL := strings.TrimSpace(section.urls[0])
		if len(remoteURL) == 0 {
			return Configuration{}, fmt.Errorf(emptyURLDetailTemplateConstant, ErrMalformedConfiguration, section.name)
		}

		remote := Remote{Name: section.name, URL: remoteURL}
		seenBranchRefs := map[string]bool{}
		for _, fetchLine := range section.fetchLines {
			mapping, mappingError := parseFetchMapping(fetchLine)
			if mappingError != nil {
				return Configuration{}, mappingError
			}
			if seenBranchRefs[mapping.BranchRef] {
				return Configuration{}, fmt.Errorf(duplicateBranchRefDetailTemplateConstant, ErrMalformedConfiguration, mapping.BranchRef, section.name)
			}
			seenBranchRefs[mapping.BranchRef] = true
			remote.FetchMappings = append(remote.FetchMappings, mapping)
		}

		configuration.Remotes = append(configuration.Remotes, remote)
	}

	return configuration, nil
}

// Serialize renders the configuration in the git configuration file syntax.
// Parse(Serialize(c)) is structurally equal to c for any valid c.
func Serialize(configuration Configuration) string {
	var builder strings.Builder
	for _, remote := range configuration.Remotes {
		builder.WriteString(fmt.Sprintf(sectionHeaderTemplateConstant, remoteSectionKindConstant, remote.Name))
		builder.WriteString(fmt.Sprintf(attributeLineTemplateConstant, urlAttributeNameConstant, remote.URL))
		for _, mapping := range remote.FetchMappings {
			fetchValue := fmt.Sprintf(fetchMappingValueTemplateConstant, mapping.SVNPath, fetchMappingSeparatorConstant, mapping.BranchRef)
			builder.WriteString(fmt.Sprintf(attributeLineTemplateConstant, fetchAttributeNameConstant, fetchValue))
		}
	}
	return builder.String()
}

func parseFetchMapping(value string) (FetchMapping, error) {
	components := strings.Split(strings.TrimSpace(value), fetchMappingSeparatorConstant)
	if len(components) != 2 || len(components[0]) == 0 || len(components[1]) == 0 {
		return FetchMapping{}, fmt.Errorf(fetchMappingFormatDetailTemplateConstant, ErrMalformedConfiguration, value, fetchMappingSeparatorConstant)
	}
	return FetchMapping{SVNPath: components[0], BranchRef: components[1]}, nil
}

func splitSections(text string) []parsedSection {
	sections := []parsedSection{}
	var current *parsedSection

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if len(line) == 0 || strings.HasPrefix(line, commentPrefixHashConstant) || strings.HasPrefix(line, commentPrefixSemicolonConstant) {
			continue
		}

		if strings.HasPrefix(line, sectionHeaderOpeningConstant) && strings.HasSuffix(line, sectionHeaderClosingConstant) {
			kind, name := parseSectionHeader(line)
			sections = append(sections, parsedSection{kind: kind, name: name})
			current = &sections[len(sections)-1]
			continue
		}

		if current == nil {
			continue
		}

		key, value, hasAssignment := strings.Cut(line, attributeAssignmentSeparatorConstant)
		if !hasAssignment {
			continue
		}
		switch strings.TrimSpace(key) {
		case urlAttributeNameConstant:
			current.urls = append(current.urls, strings.TrimSpace(value))
		case fetchAttributeNameConstant:
			current.fetchLines = append(current.fetchLines, strings.TrimSpace(value))
		}
	}

	return sections
}

func parseSectionHeader(line string) (string, string) {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, sectionHeaderOpeningConstant), sectionHeaderClosingConstant)
	kind, remainder, hasName := strings.Cut(strings.TrimSpace(inner), " ")
	if !hasName {
		return strings.TrimSpace(kind), ""
	}
	name := strings.TrimSpace(remainder)
	name = strings.Trim(name, `"`)
	return strings.TrimSpace(kind), name
}
