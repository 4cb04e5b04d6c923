package postgres

import (
	"fmt"

	"go-stock-resi/internal/model"

	"gorm.io/gorm"
)

var notifyFunction = fmt.Sprintf(`
CREATE OR REPLACE FUNCTION stock_resi_notify() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'DELETE' THEN
		PERFORM pg_notify('%[1]s', json_build_object(
			'table', TG_TABLE_NAME, 'op', TG_OP, 'id', OLD.id)::text);
	ELSE
		PERFORM pg_notify('%[1]s', json_build_object(
			'table', TG_TABLE_NAME, 'op', TG_OP, 'id', NEW.id, 'row', row_to_json(NEW))::text);
	END IF;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`, ChangeChannel)

var changeTables = []string{"products", "transactions"}

// Migrate creates the tables and the triggers feeding the change channel.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Product{}, &model.Transaction{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(notifyFunction).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}
	for _, table := range changeTables {
		trigger := table + "_notify"
		if err := db.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trigger, table)).Error; err != nil {
			return fmt.Errorf("drop trigger %s: %w", trigger, err)
		}
		create := fmt.Sprintf(
			"CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION stock_resi_notify()",
			trigger, table,
		)
		if err := db.Exec(create).Error; err != nil {
			return fmt.Errorf("create trigger %s: %w", trigger, err)
		}
	}
	return nil
}
