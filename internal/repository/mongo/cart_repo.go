package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

const (
	cartCollection = "carts"
	// addItemRetries ограничивает повторы при гонке двух первых добавлений в одну корзину
	addItemRetries = 3
)

// cartDocument — одна корзина на аккаунт, строки хранятся массивом в порядке добавления
type cartDocument struct {
	AccountID int64             `bson:"_id"`
	Items     []entity.CartItem `bson:"items"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// CartRepo реализует repository.CartRepository на коллекции carts
type CartRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewCartRepo создает репозиторий корзин и индекс для очистки старых корзин
func NewCartRepo(ctx context.Context, db *mongo.Database) (*CartRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("mongo database cannot be nil for CartRepo")
	}
	coll := db.Collection(cartCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetName("carts_updated_at"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create carts index: %w", err)
	}
	return &CartRepo{coll: coll, now: time.Now}, nil
}

func cartID(accountID uint) int64 { return int64(accountID) }

// Get возвращает корзину; отсутствующий документ означает пустую корзину
func (r *CartRepo) Get(ctx context.Context, accountID uint) (*entity.CartSnapshot, error) {
	var doc cartDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": cartID(accountID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &entity.CartSnapshot{AccountID: accountID, Items: []entity.CartItem{}}, nil
		}
		return nil, err
	}
	items := make([]entity.CartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		it.AccountID = accountID
		items = append(items, it)
	}
	return &entity.CartSnapshot{AccountID: accountID, Items: items}, nil
}

// AddItem увеличивает количество существующей строки либо дописывает новую.
// Количество строки не превышает entity.MaxCartLineQuantity.
// Документ корзины создается при первом добавлении (upsert).
func (r *CartRepo) AddItem(ctx context.Context, accountID uint, item entity.CartItem) error {
	id := cartID(accountID)
	if item.Quantity > entity.MaxCartLineQuantity {
		item.Quantity = entity.MaxCartLineQuantity
	}
	for attempt := 0; attempt < addItemRetries; attempt++ {
		now := r.now()
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": id, "items.product_id": item.ProductID},
			mergeLinePipeline(item, now),
		)
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}

		item.CreatedAt = now
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"_id": id, "items.product_id": bson.M{"$ne": item.ProductID}},
			bson.M{
				"$push": bson.M{"items": item},
				"$set":  bson.M{"updated_at": now},
			},
			options.UpdateOne().SetUpsert(true),
		)
		if err == nil {
			return nil
		}
		// Строку успели добавить параллельно: upsert упирается в _id, повторяем слияние
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return fmt.Errorf("%w: concurrent cart update for account %d", apperrors.ErrConflict, accountID)
}

// literal экранирует значение в выражении агрегации: строка с "$" иначе читается как путь к полю
func literal(v interface{}) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

// mergeLinePipeline прибавляет количество к строке item.ProductID с потолком
// MaxCartLineQuantity и обновляет название и цену
func mergeLinePipeline(item entity.CartItem, now time.Time) mongo.Pipeline {
	merged := bson.D{{Key: "$mergeObjects", Value: bson.A{
		"$$it",
		bson.D{
			{Key: "quantity", Value: bson.D{{Key: "$min", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{"$$it.quantity", item.Quantity}}},
				entity.MaxCartLineQuantity,
			}}}},
			{Key: "title", Value: literal(item.Title)},
			{Key: "unit_price", Value: item.UnitPrice},
		},
	}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "items", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: "$items"},
				{Key: "as", Value: "it"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$it.product_id", literal(item.ProductID)}}},
					merged,
					"$$it",
				}}}},
			}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

// SetQuantity задает количество существующей строки
func (r *CartRepo) SetQuantity(ctx context.Context, accountID uint, productID string, quantity int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cartID(accountID), "items.product_id": productID},
		bson.M{"$set": bson.M{"items.$.quantity": quantity, "updated_at": r.now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RemoveItem удаляет строку корзины
func (r *CartRepo) RemoveItem(ctx context.Context, accountID uint, productID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cartID(accountID), "items.product_id": productID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"product_id": productID}},
			"$set":  bson.M{"updated_at": r.now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Clear удаляет документ корзины целиком
func (r *CartRepo) Clear(ctx context.Context, accountID uint) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": cartID(accountID)})
	return err
}

// RemoveLines вычитает оформленные количества и удаляет обнулившиеся строки
// одним обновлением документа, поэтому частичного применения не бывает.
// Вызов не идемпотентен: повтор после успеха вычтет количества еще раз.
func (r *CartRepo) RemoveLines(ctx context.Context, accountID uint, lines []entity.CartItem) error {
	if len(lines) == 0 {
		return nil
	}
	dec := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := dec[line.ProductID]; !ok {
			order = append(order, line.ProductID)
		}
		dec[line.ProductID] += line.Quantity
	}
	branches := make(bson.A, 0, len(order))
	for _, pid := range order {
		branches = append(branches, bson.D{
			{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$$it.product_id", literal(pid)}}}},
			{Key: "then", Value: dec[pid]},
		})
	}

	decremented := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: "$items"},
		{Key: "as", Value: "it"},
		{Key: "in", Value: bson.D{{Key: "$mergeObjects", Value: bson.A{
			"$$it",
			bson.D{{Key: "quantity", Value: bson.D{{Key: "$subtract", Value: bson.A{
				"$$it.quantity",
				bson.D{{Key: "$switch", Value: bson.D{{Key: "branches", Value: branches}, {Key: "default", Value: 0}}}},
			}}}}},
		}}}},
	}}}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cartID(accountID)},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "items", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: decremented},
					{Key: "as", Value: "it"},
					{Key: "cond", Value: bson.D{{Key: "$gt", Value: bson.A{"$$it.quantity", 0}}}},
				}}}},
				{Key: "updated_at", Value: r.now()},
			}}},
		},
	)
	return err
}
