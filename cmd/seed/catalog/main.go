package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/config"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/mansoorceksport/clubdesk/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seeds the plan catalog and a handful of demo members. Plans are matched by
// name so the script can be re-run; members are always inserted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	sequences := repository.NewMongoSequenceRepository(db)
	plans := repository.NewMongoPlanRepository(db, sequences)
	members := repository.NewMongoMemberRepository(db, sequences)

	catalog := []domain.Plan{
		{Name: "Monthly", Type: "Standard", Description: "Full gym access for one month", Price: 29990, DurationDays: 30, IsActive: true},
		{Name: "Quarterly", Type: "Standard", Description: "Full gym access for three months", Price: 79990, DurationDays: 90, IsActive: true},
		{Name: "Semiannual", Type: "Standard", Description: "Full gym access for six months", Price: 149990, DurationDays: 180, IsActive: true},
		{Name: "Annual", Type: "Premium", Description: "Full gym access and classes for a year", Benefits: "Group classes, locker", Price: 279990, DurationDays: 365, IsActive: true},
		{Name: "Day Pass", Type: "Drop-in", Price: 4990, DurationDays: 1, IsActive: true},
		{Name: "Student Monthly", Type: "Discount", Description: "Retired in favour of promotional pricing", Price: 19990, DurationDays: 30, IsActive: false},
	}

	existing, err := plans.List(ctx, false)
	if err != nil {
		log.Fatalf("Failed to list plans: %v", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Name] = true
	}

	for _, p := range catalog {
		if seen[p.Name] {
			fmt.Printf("Skipping existing plan: %s\n", p.Name)
			continue
		}
		if err := plans.Create(ctx, &p); err != nil {
			log.Printf("Error creating plan %s: %v\n", p.Name, err)
			continue
		}
		fmt.Printf("Created plan %d: %s\n", p.ID, p.Name)
	}

	demo := []domain.Member{
		{RUT: "12.345.678-5", FirstName: "Ana", LastName: "Soto", Email: "ana.soto@example.com", Phone: "+56911111111"},
		{RUT: "9.876.543-3", FirstName: "Juan Pablo", LastName: "Rojas Díaz", Email: "jp.rojas@example.com"},
		{FirstName: "Camila", LastName: "Muñoz", Phone: "+56922222222"},
	}

	for _, m := range demo {
		if err := members.Create(ctx, &m); err != nil {
			log.Printf("Error creating member %s: %v\n", m.FullName(), err)
			continue
		}
		fmt.Printf("Created member %d: %s\n", m.ID, m.FullName())
	}
	fmt.Println("Seeding Catalog Complete.")
}
