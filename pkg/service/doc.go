// Package service serves a BACnet device to network clients.
//
// DeviceService ties the lower-level packages together:
//   - Request dispatch to the device (ReadProperty, ReadPropertyMultiple,
//     WriteProperty, CreateObject, DeleteObject)
//   - COV subscriptions and notification delivery
//   - Who-Has answered with a broadcast I-Have
//   - DeviceCommunicationControl
//   - State persistence and value history
//
// Example usage:
//
//	d := device.New(device.Config{Instance: 260001})
//	_ = d.AddHandler(object.NewAnalogValue())
//
//	svc := service.NewDeviceService(d, service.DefaultConfig())
//	server, err := svc.Serve(ctx, transport.ServerConfig{Address: ":47808"})
//	defer server.Stop()
//	go svc.Run(ctx)
//
// # Local access
//
// The same operations are available in-process through ReadValues,
// WriteValue, Relinquish, CreateObject and DeleteObject. These are used by
// the HTTP API and the interactive console. SubscribeLocal registers an
// in-process watcher whose notifications arrive as events.
package service
