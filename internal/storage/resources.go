package storage

import "fmt"

const ResourceScheme = "transcript"

// TranscriptURI is the resource from which the plain-text transcript is downloaded
func TranscriptURI(id string) string {
	return fmt.Sprintf("%s://%s", ResourceScheme, id)
}

// TranscriptInfoURI is the resource describing a transcript as JSON
func TranscriptInfoURI(id string) string {
	return fmt.Sprintf("%s://%s/info", ResourceScheme, id)
}

// CalculateResourcePaths lists the resource URIs available for a stored transcript
func CalculateResourcePaths(id string) []string {
	return []string{TranscriptURI(id), TranscriptInfoURI(id)}
}
