package cached

import "github.com/fastygo/todo/domain"

// taskCache is an insertion-ordered id -> task map. A nil *taskCache is the
// "uninitialized" state; callers hold the repository mutex.
type taskCache struct {
	order []string
	tasks map[string]domain.Task
}

func newTaskCache() *taskCache {
	return &taskCache{tasks: make(map[string]domain.Task)}
}

func (c *taskCache) get(id string) (domain.Task, bool) {
	task, ok := c.tasks[id]
	return task, ok
}

func (c *taskCache) put(task domain.Task) {
	if _, ok := c.tasks[task.ID]; !ok {
		c.order = append(c.order, task.ID)
	}
	c.tasks[task.ID] = task
}

func (c *taskCache) remove(id string) {
	if _, ok := c.tasks[id]; !ok {
		return
	}
	delete(c.tasks, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *taskCache) removeCompleted() {
	kept := c.order[:0]
	for _, id := range c.order {
		if c.tasks[id].Completed {
			delete(c.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

func (c *taskCache) clear() {
	c.order = nil
	c.tasks = make(map[string]domain.Task)
}

func (c *taskCache) reset(tasks []domain.Task) {
	c.clear()
	for _, task := range tasks {
		c.put(task)
	}
}

func (c *taskCache) len() int {
	return len(c.tasks)
}

// values returns a fresh slice so callers never alias cache storage.
func (c *taskCache) values() []domain.Task {
	out := make([]domain.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tasks[id])
	}
	return out
}
