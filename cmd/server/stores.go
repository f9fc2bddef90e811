package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	"commerce-core/internal/repository/memory"
	"commerce-core/pkg/config"
	"commerce-core/pkg/database"
)

type stores struct {
	coupons     repository.CouponRepository
	userCoupons repository.UserCouponRepository
	products    repository.ProductRepository
	balances    repository.BalanceRepository
	orders      repository.OrderRepository
}

func openStores(ctx context.Context, cfg config.Config, log logr.Logger) (*stores, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Info("using in-memory stores; data is lost on exit")
		return &stores{
			coupons:     memory.NewCouponRepository(),
			userCoupons: memory.NewUserCouponRepository(),
			products:    memory.NewProductRepository(),
			balances:    memory.NewBalanceRepository(),
			orders:      memory.NewOrderRepository(),
		}, func() {}, nil

	case "mongo":
		mongoDB, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to MongoDB", "db", cfg.MongoDB)

		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoDB.Disconnect(ctx); err != nil {
				log.Error(err, "disconnect from MongoDB")
			}
		}
		db := mongoDB.Database
		return &stores{
			coupons:     repository.NewCouponRepository(db),
			userCoupons: repository.NewUserCouponRepository(db),
			products:    repository.NewProductRepository(db),
			balances:    repository.NewBalanceRepository(db),
			orders:      repository.NewOrderRepository(db),
		}, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

var catalog = []model.Product{
	{ID: 1, Name: "Mechanical Keyboard", Price: 89000, Stock: 500},
	{ID: 2, Name: "Wireless Mouse", Price: 32000, Stock: 800},
	{ID: 3, Name: "27-inch Monitor", Price: 329000, Stock: 120},
	{ID: 4, Name: "USB-C Hub", Price: 45000, Stock: 600},
	{ID: 5, Name: "Noise Cancelling Headphones", Price: 259000, Stock: 200},
	{ID: 6, Name: "Webcam 1080p", Price: 69000, Stock: 300},
	{ID: 7, Name: "Laptop Stand", Price: 39000, Stock: 400},
	{ID: 8, Name: "Desk Mat", Price: 19000, Stock: 1000},
	{ID: 9, Name: "Portable SSD 1TB", Price: 149000, Stock: 250},
	{ID: 10, Name: "Bluetooth Speaker", Price: 99000, Stock: 350},
	{ID: 11, Name: "Smart Watch", Price: 279000, Stock: 150},
	{ID: 12, Name: "Charging Cable 2m", Price: 12000, Stock: 2000},
}

// seedCatalog upserts the catalog. Existing stock is left untouched.
func seedCatalog(ctx context.Context, products repository.ProductRepository) error {
	now := time.Now()
	for _, p := range catalog {
		p := p
		p.CreatedAt = now
		if err := products.SaveProduct(ctx, &p); err != nil {
			return fmt.Errorf("product %d: %w", p.ID, err)
		}
	}
	return nil
}
