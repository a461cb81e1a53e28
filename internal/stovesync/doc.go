// Package stovesync carries stove state from the authoritative process to
// presentation replicas over MQTT.
//
// The authoritative scheduler encodes every dirty stove as a Payload and
// publishes it retained on the stove's sync topic. A Replica subscribes to
// all sync topics and applies each payload to a replica registry, so
// presentation processes can emit smoke for the slots that are occupied.
// An empty retained payload means the stove was removed.
package stovesync
