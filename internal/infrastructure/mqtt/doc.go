// Package mqtt connects Gray Hearth to an MQTT broker.
//
// The broker carries stove state from the authoritative process to
// presentation replicas:
//
//	authoritative ──retained sync──▶ broker ──▶ presentation replicas
//
// Each stove's state is published retained on hearth/core/stove/{id}/sync
// so a replica that starts late receives the current state of every stove
// immediately. Removing a stove clears its retained message. Cook events
// go to hearth/core/event/{type} without retention. The process announces
// itself on hearth/system/status, with a Last Will so a crash shows as
// offline.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllStoveSyncs(), 1, handler)
package mqtt
