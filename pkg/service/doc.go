// Package service wires the satellite link components into one long-lived
// orchestrator.
//
// A Service owns the request arbiter, the radio coexistence monitor and the
// datagram delivery manager, and routes the modem gateway's notifications to
// them. Callers use it to switch the link on or off and to receive
// datagrams:
//
//	svc, err := service.New(service.Config{Gateway: gw, RecordStore: db, CounterStore: db})
//	svc.Start()
//	defer svc.Stop()
//
//	code := svc.SetEnabled(ctx, satellite.EnableAttributes{Enable: true})
//	id, _ := svc.RegisterDatagramListener("sms", listener)
//
// NewFromConfig builds the same from a config.Config, opening the configured
// store.
package service
