package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
)

// ItemDTO is one cart line enriched with the live product snapshot.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartDTO is the full cart payload.
type CartDTO struct {
	Items []ItemDTO       `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// WishlistItemDTO is one saved product.
type WishlistItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}

func toCartDTO(items []models.CartItem) CartDTO {
	dto := CartDTO{Items: []ItemDTO{}, Total: decimal.Zero}
	for i := range items {
		item := &items[i]
		if item.Product == nil {
			// Product vanished since it was added; skip the stale line.
			continue
		}
		line := ItemDTO{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			ImageURL:  item.Product.ImageURL,
			Price:     item.Product.Price,
			Stock:     item.Product.Stock,
			Quantity:  item.Quantity,
			LineTotal: item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		dto.Items = append(dto.Items, line)
		dto.Total = dto.Total.Add(line.LineTotal)
	}
	return dto
}

func toWishlistDTOs(items []models.WishlistItem) []WishlistItemDTO {
	dtos := []WishlistItemDTO{}
	for i := range items {
		item := &items[i]
		if item.Product == nil {
			continue
		}
		dtos = append(dtos, WishlistItemDTO{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			ImageURL:  item.Product.ImageURL,
			Price:     item.Product.Price,
			AddedAt:   item.CreatedAt,
		})
	}
	return dtos
}
