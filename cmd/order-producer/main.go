package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/redis"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	orderbookv1 "github.com/muhammadchandra19/matcher/internal/domain/orderbook/v1"
)

// sender delivers one encoded order message.
type sender interface {
	Send(ctx context.Context, key string, value []byte) error
	Close() error
}

type kafkaSender struct {
	writer *kafka.Writer
}

func (s *kafkaSender) Send(ctx context.Context, key string, value []byte) error {
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value, Time: time.Now()})
}

func (s *kafkaSender) Close() error {
	return s.writer.Close()
}

type redisSender struct {
	client  redis.Client
	channel string
}

func (s *redisSender) Send(ctx context.Context, _ string, value []byte) error {
	_, err := s.client.Publish(ctx, s.channel, value)
	return err
}

func (s *redisSender) Close() error {
	return s.client.Disconnect(context.Background())
}

// generator draws realistic order flow around a base price.
type generator struct {
	rng         *rand.Rand
	instrument  string
	basePrice   decimal.Decimal
	priceSpread decimal.Decimal
	tick        decimal.Decimal
	placed      []string
}

func (g *generator) price(offset float64) decimal.Decimal {
	p := g.basePrice.Add(g.priceSpread.Mul(decimal.NewFromFloat(offset)))
	p = p.Div(g.tick).Round(0).Mul(g.tick)
	if !p.IsPositive() {
		return g.basePrice
	}
	return p
}

func (g *generator) next() orderbookv1.PlaceOrderRequest {
	// 5% cancels of earlier orders
	if len(g.placed) > 0 && g.rng.Float64() < 0.05 {
		return orderbookv1.PlaceOrderRequest{
			OrderID:    g.placed[g.rng.IntN(len(g.placed))],
			Instrument: g.instrument,
			Action:     orderbookv1.ActionCancel,
		}
	}

	side := orderbookv1.SideSell
	direction := 1.0
	if g.rng.Float64() < 0.5 {
		side = orderbookv1.SideBuy
		direction = -1
	}

	req := orderbookv1.PlaceOrderRequest{
		OrderID:    uuid.NewString(),
		UserID:     "user-" + uuid.NewString()[:8],
		Instrument: g.instrument,
		Side:       side,
		Quantity:   decimal.NewNullDecimal(decimal.NewFromInt(int64(1 + g.rng.IntN(100)))),
	}

	// 65% limit, 25% market, 10% stop limit
	switch r := g.rng.Float64(); {
	case r < 0.65:
		req.Type = orderbookv1.OrderTypeLimit
		// limit orders mostly rest on their own side, some cross
		req.Price = decimal.NewNullDecimal(g.price(direction * (g.rng.Float64() - 0.2) * 0.8))
	case r < 0.90:
		req.Type = orderbookv1.OrderTypeMarket
	default:
		req.Type = orderbookv1.OrderTypeStopLimit
		// buy stops above the market, sell stops below
		stop := g.price(-direction * g.rng.Float64() * 0.5)
		req.StopPrice = decimal.NewNullDecimal(stop)
		req.LimitPrice = decimal.NewNullDecimal(stop.Add(g.tick.Mul(decimal.NewFromFloat(-direction * 2))))
	}

	g.placed = append(g.placed, req.OrderID)
	return req
}

func main() {
	var (
		target      = flag.String("target", "kafka", "Where to send orders: kafka or redis")
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "orders", "Kafka topic or redis channel name")
		redisAddr   = flag.String("redis-addr", "localhost:6379", "Redis address")
		file        = flag.String("file", "", "JSON file with orders (optional, generates orders if not provided)")
		instrument  = flag.String("instrument", "BTC-USD", "Instrument of generated orders")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending orders")
		count       = flag.Int("count", 1000, "Number of orders to generate")
		basePrice   = flag.String("base-price", "3945.5", "Base price for orders")
		priceSpread = flag.String("price-spread", "200", "Price spread range")
		tick        = flag.String("tick", "0.5", "Price tick size")
	)
	flag.Parse()

	decimal.MarshalJSONWithoutQuotes = true

	log, err := logger.NewLogger(logger.WithDevelopment())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out sender
	switch *target {
	case "kafka":
		out = &kafkaSender{writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
			Topic:        *topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}}
	case "redis":
		cfg := redis.DefaultConfig()
		cfg.Addrs = []string{*redisAddr}
		client := redis.NewClient(log, cfg)
		if err := client.Connect(ctx); err != nil {
			log.Error(err, logger.NewField("action", "connect_redis"))
			os.Exit(1)
		}
		out = &redisSender{client: client, channel: *topic}
	default:
		log.Warn("Unknown target", logger.NewField("target", *target))
		os.Exit(2)
	}
	defer out.Close()

	var orders []orderbookv1.PlaceOrderRequest
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Error(err, logger.NewField("file", *file))
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &orders); err != nil {
			log.Error(err, logger.NewField("file", *file))
			os.Exit(1)
		}
		log.Info("Loaded orders from file", logger.NewField("count", len(orders)), logger.NewField("file", *file))
	} else {
		g := &generator{
			rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
			instrument:  *instrument,
			basePrice:   decimal.RequireFromString(*basePrice),
			priceSpread: decimal.RequireFromString(*priceSpread),
			tick:        decimal.RequireFromString(*tick),
		}
		orders = make([]orderbookv1.PlaceOrderRequest, 0, *count)
		for range *count {
			orders = append(orders, g.next())
		}
		log.Info("Generated orders", logger.NewField("count", len(orders)))
	}

	log.Info("Sending orders", logger.NewField("target", *target), logger.NewField("topic", *topic), logger.NewField("delay", *delay))

	summary := make(map[string]int)
	for i, order := range orders {
		if ctx.Err() != nil {
			break
		}

		payload, err := json.Marshal(order)
		if err != nil {
			log.Error(err, logger.NewField("index", i))
			continue
		}

		key := order.Instrument
		if key == "" {
			key = order.OrderID
		}
		if err := out.Send(ctx, key, payload); err != nil {
			log.Error(err, logger.NewField("orderID", order.OrderID))
			continue
		}

		kind := string(order.Type)
		if order.IsCancel() {
			kind = string(orderbookv1.ActionCancel)
		}
		summary[kind]++
		summary[string(order.Side)]++

		if (i+1)%100 == 0 || i == len(orders)-1 {
			log.Info("Sent orders", logger.NewField("sent", i+1), logger.NewField("total", len(orders)))
		}

		if i < len(orders)-1 {
			time.Sleep(*delay)
		}
	}

	log.Info("Summary",
		logger.NewField("limit", summary[string(orderbookv1.OrderTypeLimit)]),
		logger.NewField("market", summary[string(orderbookv1.OrderTypeMarket)]),
		logger.NewField("stopLimit", summary[string(orderbookv1.OrderTypeStopLimit)]),
		logger.NewField("cancel", summary[string(orderbookv1.ActionCancel)]),
		logger.NewField("buy", summary[string(orderbookv1.SideBuy)]),
		logger.NewField("sell", summary[string(orderbookv1.SideSell)]),
	)
}
