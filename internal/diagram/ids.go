package diagram

import (
	"strconv"

	"github.com/archmap/archmap/internal/normalize"
)

const (
	functionNodePrefix = "f-"
	externalNodePrefix = "ext-"
	streamNamePrefix   = "stream "
)

// AppNodeID identifies a home app node.
func AppNodeID(appID int64) string {
	return strconv.FormatInt(appID, 10)
}

// ExternalNodeID identifies an app rendered only because it connects to a
// home entity.
func ExternalNodeID(appID int64) string {
	return externalNodePrefix + strconv.FormatInt(appID, 10)
}

// FunctionNodeID identifies a function by its exact name. Functions sharing
// a name collapse into a single node.
func FunctionNodeID(name string) string {
	return functionNodePrefix + name
}

// StreamNodeID is the normalized stream name used as the group node id and
// as the stream layout key.
func StreamNodeID(streamName string) string {
	name := normalize.Lower(streamName)
	name = normalize.TrimPrefixFold(name, streamNamePrefix)
	return normalize.Trim(name)
}

// EdgeID is the directional identity of an edge. It is not canonicalized:
// mirrored integrations produce different ids.
func EdgeID(sourceAppID, targetAppID int64) string {
	return strconv.FormatInt(sourceAppID, 10) + "-" + strconv.FormatInt(targetAppID, 10)
}
