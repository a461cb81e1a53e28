package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
//
//	hearth/core/stove/{id}/sync   retained stove state for presentation replicas
//	hearth/core/event/{type}      cook events (cooked, burnt, ejected)
//	hearth/system/status          retained online/offline status, also the LWT
const (
	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "hearth/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Gray Hearth MQTT topics.
//
//	topic := mqtt.Topics{}.StoveSync("stv-1a2b3c4d")
//	// Returns: "hearth/core/stove/stv-1a2b3c4d/sync"
type Topics struct{}

// StoveSync returns the retained sync topic of one stove.
func (Topics) StoveSync(stoveID string) string {
	return fmt.Sprintf("%s/stove/%s/sync", TopicPrefixCore, stoveID)
}

// AllStoveSyncs returns the wildcard matching every stove's sync topic.
func (Topics) AllStoveSyncs() string {
	return TopicPrefixCore + "/stove/+/sync"
}

// CoreEvent returns the topic for cook events of the given type.
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// AllCoreEvents returns the wildcard matching every core event.
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// SystemStatus returns the topic for process online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// StoveIDFromSyncTopic extracts the stove ID from a sync topic.
// It reports false for topics that are not stove sync topics.
func StoveIDFromSyncTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixCore+"/stove/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/sync")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
