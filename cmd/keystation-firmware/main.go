//go:build tinygo && avr

// keystation-firmware runs on the ATmega328P behind the keybed.
//
//	tinygo build -target arduino -ldflags "-X main.buildID=$(cat build-id)" -o keystation.hex ./cmd/keystation-firmware
package main

import (
	"device/avr"
	"machine"
	"runtime/interrupt"

	"github.com/gethiox/keystation/internal/pkg/firmware"
	"github.com/gethiox/keystation/internal/pkg/keybed"
)

var (
	header  = "I am a keyboard :) "
	buildID = "dev"
)

var clock keybed.Millis

// startClock ticks clock every millisecond from TIMER2, TIMER0 belongs to the runtime.
func startClock() {
	interrupt.New(avr.IRQ_TIMER2_COMPA, func(interrupt.Interrupt) {
		clock.Tick()
	})
	avr.TCCR2A.Set(avr.TCCR2A_WGM21) // clear timer on compare match
	avr.TCCR2B.Set(avr.TCCR2B_CS22)  // 16MHz / 64
	avr.OCR2A.Set(249)               // 250 counts, 1kHz
	avr.TIMSK2.SetBits(avr.TIMSK2_OCIE2A)
}

func output(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return p
}

func input(p machine.Pin) keybed.InputPin {
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return p
}

func main() {
	serial := machine.Serial
	serial.Configure(machine.UARTConfig{BaudRate: 115200})

	firmware.Guard(serial, func() {
		startClock()

		shift := keybed.NewShiftRegister(output(machine.D13), output(machine.D12), output(machine.D11))
		contactsA := [keybed.Reads]keybed.InputPin{
			input(machine.D6), input(machine.D3), input(machine.ADC5), input(machine.ADC3),
			input(machine.ADC1), input(machine.D10), input(machine.D8),
		}
		contactsB := [keybed.Reads]keybed.InputPin{
			input(machine.D5), input(machine.D4), input(machine.ADC4), input(machine.ADC2),
			input(machine.ADC0), input(machine.D9), input(machine.D7),
		}

		kb := keybed.New(shift, contactsA, contactsB, &clock)
		_ = firmware.New(kb, serial, header+buildID).Run()
	})

	for {
		// halted, the host reflashes or power cycles us
	}
}
