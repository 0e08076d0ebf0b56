// Package queue defines the booking lifecycle events, the RabbitMQ
// publisher, and the background consumer that appends settled bookings
// and sweep results to logs/booking.log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumer connects to RabbitMQ, declares the booking.paid and
// seat.expired queues (durable), and starts consuming both. Each
// message is appended to logs/booking.log in a single-line format.
// The function runs a reconnect loop with exponential backoff and keeps
// running across broker restarts; processing errors reject the
// offending message without requeueing so the server continues
// operating.
func StartConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("queue-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("queue-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("queue-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{BookingPaidQueue, SeatsExpiredQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	paid, err := ch.Consume(BookingPaidQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", BookingPaidQueue, err)
	}
	expired, err := ch.Consume(SeatsExpiredQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", SeatsExpiredQueue, err)
	}

	for {
		select {
		case d, ok := <-paid:
			if !ok {
				return errors.New("booking.paid deliveries channel closed")
			}
			ackOrReject(d, handleBookingPaid(d.Body))
		case d, ok := <-expired:
			if !ok {
				return errors.New("seat.expired deliveries channel closed")
			}
			ackOrReject(d, handleSeatsExpired(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("queue-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleBookingPaid(body []byte) error {
	var ev BookingPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking paid | booking_id=%d | user_id=%d | amount=%d cents | provider=%s | order=%s\n",
		ev.PaidAt.Format(time.RFC3339), ev.BookingID, ev.UserID, ev.AmountCents, ev.Provider, ev.OrderID)
	return appendLogLine(line)
}

func handleSeatsExpired(body []byte) error {
	var ev SeatsExpiredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	for _, s := range ev.Seats {
		line := fmt.Sprintf("[%s] Hold expired | event_id=%d | seat_id=%d | user_id=%d | trigger=%s\n",
			ev.SweptAt.Format(time.RFC3339), s.EventID, s.SeatID, s.UserID, ev.TriggerBy)
		if err := appendLogLine(line); err != nil {
			return err
		}
	}
	return nil
}

func appendLogLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
