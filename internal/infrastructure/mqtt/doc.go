// Package mqtt is the Safehouse message transport adapter.
//
// It owns the single broker connection, built on paho.mqtt.golang with
// automatic reconnect. Inbound messages from every subscribed filter go to
// one MessageHandler (the topic router); the filter set is re-subscribed
// as one batch after each reconnect.
//
// # Architecture
//
//	scanners, sensors, fans, cameras ↔ broker ↔ mqtt.Client ↔ topic.Router / command.Publisher
//
// The client publishes a retained "online" on safehouse/status at every
// connect; the broker publishes the retained "offline" will when the
// connection is lost.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) when the broker is off-host
//   - Topic levels built from request data are checked with ValidateLevel,
//     so a device id or location cannot inject separators or wildcards
//
// Topic layout used by devices:
//
//	{userId}/rfid/{location}/{deviceId}/scan               card scans
//	{userId}/rfid/{location}/{deviceId}/scan/{cardUID}     authorization replies
//	{userId}/temperatur/{location}/{deviceId}              temperature reports
//	{userId}/temperatur/{location}/{deviceId}/fanState     fan state reports
//	{userId}/{class}/{location}/{deviceId}/settings        commands to devices
//	rfid/assign, rfid/assign/{deviceId}                    scanner provisioning
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(router.Patterns(), 1, router.Deliver)
package mqtt
