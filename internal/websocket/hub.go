package websocket

import (
	"bytes"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"dexarb/internal/bot"
	"dexarb/internal/models"
)

// jsonBufferPool переиспользует буферы сериализации между Broadcast'ами
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями.
//
// Центральный менеджер broadcast сообщений: frontend получает события
// движка, записи журнала и обновления статистики без polling'а.
//
// Использование:
//  1. Создать hub: hub := NewHub(logger)
//  2. Запустить в горутине: go hub.Run()
//  3. Подписать на шину движка: go hub.RunEventLoop(bus.Subscribe())
//  4. Отправлять сообщения: hub.BroadcastNotification(n)
//
// Медленные клиенты (переполненный send-буфер) отключаются, чтобы один
// зависший браузер не тормозил рассылку остальным.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *zap.Logger

	// mu защищает clients
	mu sync.RWMutex

	stopOnce sync.Once
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub.
//
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			// копируем список клиентов под коротким RLock,
			// отправка идет без блокировки register/unregister
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// клиент не успевает вычитывать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("removed slow websocket clients",
					zap.Int("removed", len(toRemove)),
					zap.Int("total", total),
				)
			}
		}
	}
}

// RunEventLoop транслирует события торгового движка в WebSocket.
//
// Завершается при закрытии канала событий или остановке hub'а.
// Запускается в отдельной горутине.
func (h *Hub) RunEventLoop(events <-chan bot.Event) {
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(NewEngineEventMessage(event))
		}
	}
}

// Stop останавливает hub и закрывает все клиентские соединения
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast сериализует сообщение и отправляет его всем клиентам.
// Не блокирует вызывающего: при переполненном канале сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("marshal broadcast message", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Encode добавляет trailing newline
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// буфер вернется в пул, данные копируем
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	select {
	case h.broadcast <- msgCopy:
	case <-h.done:
	default:
		h.logger.Warn("broadcast buffer full, message dropped")
	}
}

// BroadcastNotification отправляет новую запись журнала.
// Реализует service.WebSocketBroadcaster.
func (h *Hub) BroadcastNotification(n *models.Notification) {
	h.Broadcast(NewNotificationMessage(n))
}

// BroadcastStatsUpdate отправляет обновление статистики.
// Реализует service.StatsBroadcaster.
func (h *Hub) BroadcastStatsUpdate(stats *models.Stats) {
	h.Broadcast(NewStatsUpdateMessage(stats))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
