// Package topic routes inbound MQTT messages to handlers by subscription
// filter.
//
// Filters use broker wildcard rules: '+' stands for exactly one level and
// a final '#' for one or more trailing levels. Filters are compiled and
// validated when registered, so a malformed filter fails at startup rather
// than silently never matching.
//
//	r := topic.NewRouter(logger, metrics)
//	_ = r.Register("+/rfid/+/+/scan", handlers.RFIDScan)
//	_ = r.Register("+/temperatur/+/+", handlers.Temperature)
//
//	client.Subscribe(r.Patterns(), 1, r.Deliver)
//
// The first registered filter that matches wins. Unmatched messages are
// logged and dropped.
package topic
