// Package link keeps the device connected to its wireless network.
//
// A Driver performs the raw connect and status calls. Guard wraps a driver
// with the retry policy: Persistent mode blocks until the link is up,
// OneShot mode makes a bounded attempt and always hands control back.
package link
