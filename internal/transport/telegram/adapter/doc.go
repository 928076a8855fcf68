// Package adapter implements transport.Sender on top of telebot.
package adapter
