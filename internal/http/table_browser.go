package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/repository"
)

// browsableTables are the module's own tables; nothing else in the host
// database is exposed
var browsableTables = []string{
	models.ServerConfig{}.TableName(),
	models.ServiceData{}.TableName(),
	models.ModuleCallLog{}.TableName(),
}

// TableBrowser provides read-only browsing of the module tables
type TableBrowser struct {
	db *gorm.DB
}

func NewTableBrowser(db *gorm.DB) *TableBrowser {
	return &TableBrowser{db: db}
}

// ListTables returns the module tables with their row counts
// GET /db/tables
func (h *TableBrowser) ListTables(c *gin.Context) {
	type tableInfo struct {
		Name     string `json:"name"`
		RowCount int64  `json:"row_count"`
	}

	ctx := c.Request.Context()
	tables := make([]tableInfo, 0, len(browsableTables))
	for _, name := range browsableTables {
		if !h.db.WithContext(ctx).Migrator().HasTable(name) {
			continue
		}
		var count int64
		if err := h.db.WithContext(ctx).Table(name).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		tables = append(tables, tableInfo{Name: name, RowCount: count})
	}

	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

type columnInfo struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default,omitempty"`
	MaxLength *int64  `json:"max_length,omitempty"`
	IsPrimary bool    `json:"is_primary"`
}

// GetTableSchema returns column definitions for a table
// GET /db/tables/:table/schema
func (h *TableBrowser) GetTableSchema(c *gin.Context) {
	table := c.Param("table")
	columns, ok := h.columns(c, table)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "columns": columns})
}

// QueryRows returns paginated rows with optional search and sort
// GET /db/tables/:table/rows?page=1&page_size=50&search=&sort_by=created_at&sort_order=desc
func (h *TableBrowser) QueryRows(c *gin.Context) {
	table := c.Param("table")
	columns, ok := h.columns(c, table)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	search := strings.TrimSpace(c.Query("search"))
	sortBy := c.DefaultQuery("sort_by", "")
	sortOrder := strings.ToLower(c.DefaultQuery("sort_order", "desc"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	if sortBy != "" && !hasColumn(columns, sortBy) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid sort_by column: %q", sortBy)})
		return
	}

	ctx := c.Request.Context()
	query := func() *gorm.DB {
		q := h.db.WithContext(ctx).Table(table)
		if search == "" {
			return q
		}
		var conds []string
		var args []interface{}
		pattern := "%" + strings.ToLower(search) + "%"
		for _, col := range columns {
			if isTextType(col.Type) {
				conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", q.Statement.Quote(col.Name)))
				args = append(args, pattern)
			}
		}
		if len(conds) > 0 {
			q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	q := query()
	if sortBy != "" {
		q = q.Order(fmt.Sprintf("%s %s", q.Statement.Quote(sortBy), strings.ToUpper(sortOrder)))
	}

	var rows []map[string]interface{}
	if err := q.Limit(pageSize).Offset((page - 1) * pageSize).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		for k, v := range row {
			row[k] = formatValue(v)
		}
		results = append(results, repository.Sanitize(row))
	}

	c.JSON(http.StatusOK, gin.H{
		"table":     table,
		"rows":      results,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// formatValue turns raw driver bytes into strings so JSON output stays readable
func formatValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}

// --- helpers ---

func (h *TableBrowser) columns(c *gin.Context, table string) ([]columnInfo, bool) {
	ctx := c.Request.Context()
	if !isBrowsable(table) || !h.db.WithContext(ctx).Migrator().HasTable(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("table %q not found", table)})
		return nil, false
	}

	types, err := h.db.WithContext(ctx).Migrator().ColumnTypes(table)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	columns := make([]columnInfo, 0, len(types))
	for _, ct := range types {
		col := columnInfo{Name: ct.Name(), Type: strings.ToLower(ct.DatabaseTypeName())}
		if nullable, ok := ct.Nullable(); ok {
			col.Nullable = nullable
		}
		if def, ok := ct.DefaultValue(); ok && def != "" {
			col.Default = &def
		}
		if length, ok := ct.Length(); ok && length > 0 {
			col.MaxLength = &length
		}
		if pk, ok := ct.PrimaryKey(); ok {
			col.IsPrimary = pk
		}
		columns = append(columns, col)
	}
	return columns, true
}

func isBrowsable(table string) bool {
	for _, name := range browsableTables {
		if name == table {
			return true
		}
	}
	return false
}

func hasColumn(columns []columnInfo, name string) bool {
	for _, col := range columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

func isTextType(dbType string) bool {
	return strings.Contains(dbType, "char") || strings.Contains(dbType, "text") || dbType == "uuid"
}
